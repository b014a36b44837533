// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration shared by the relay and
// the client.
//
// There is exactly one configuration file, named either by the
// TALKANOVA_CONFIG environment variable ([Load]) or by a --config flag
// ([LoadFile]). Nothing is discovered implicitly.
//
// A file may carry development and production override sections that
// apply when [Config].Environment matches. After loading, path fields
// have ${HOME}, ${TALKANOVA_DATA} and ${VAR:-default} expanded.
// Durations are written as Go duration strings and parsed by
// [Config.Validate].
package config
