// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/registration"
	"github.com/talkanova/talkanova/signaling"
)

// maxTransactionAttempts bounds optimistic retries when another relay
// process writes the same key between WATCH and EXEC.
const maxTransactionAttempts = 16

// RedisStore keeps records in Redis so several relay processes can
// serve the same sessions. Each session is a JSON value that expires
// with the session; pending sessions are indexed per responder in a
// set. Read-modify-write goes through WATCH/MULTI, so two peers
// racing to publish the same round still see exactly one succeed.
type RedisStore struct {
	client *redis.Client
	clock  clock.Clock
	prefix string
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store on client. prefix namespaces every
// key; empty means "talkanova:".
func NewRedisStore(client *redis.Client, clk clock.Clock, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "talkanova:"
	}
	return &RedisStore{client: client, clock: clk, prefix: prefix}
}

func (s *RedisStore) sessionKey(id string) string     { return s.prefix + "session:" + id }
func (s *RedisStore) pendingKey(userID string) string { return s.prefix + "pending:" + userID }
func (s *RedisStore) bundleKey(userID string) string  { return s.prefix + "bundle:" + userID }

func (s *RedisStore) Create(ctx context.Context, session signaling.Session) error {
	data, err := json.Marshal(record(session))
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	key := s.sessionKey(session.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.PExpireAt(ctx, key, session.ExpiresAt)
		if session.Status == signaling.StatusPending {
			pipe.SAdd(ctx, s.pendingKey(session.ResponderID), session.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing session %s: %w", session.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (signaling.Session, error) {
	return s.load(ctx, s.client, sessionID)
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, mutate func(*signaling.Session) error) (signaling.Session, error) {
	key := s.sessionKey(sessionID)
	for range maxTransactionAttempts {
		var updated signaling.Session
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			session, err := s.load(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if err := mutate(&session); err != nil {
				return err
			}
			data, err := json.Marshal(record(session))
			if err != nil {
				return fmt.Errorf("encoding session: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, redis.KeepTTL)
				if session.Status != signaling.StatusPending {
					pipe.SRem(ctx, s.pendingKey(session.ResponderID), sessionID)
				}
				return nil
			})
			updated = session
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return signaling.Session{}, err
		}
		return record(updated), nil
	}
	return signaling.Session{}, fmt.Errorf("updating session %s: gave up after %d conflicting writes", sessionID, maxTransactionAttempts)
}

func (s *RedisStore) ListPending(ctx context.Context, responderID string) ([]signaling.Session, error) {
	index := s.pendingKey(responderID)
	ids, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("listing pending sessions of %s: %w", responderID, err)
	}
	var pending []signaling.Session
	for _, id := range ids {
		session, err := s.load(ctx, s.client, id)
		if errors.Is(err, signaling.ErrNotFound) {
			// Expired; the index entry outlived its key.
			s.client.SRem(ctx, index, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Status == signaling.StatusPending {
			pending = append(pending, session)
		}
	}
	signaling.SortByCreation(pending)
	return pending, nil
}

func (s *RedisStore) PutBundle(ctx context.Context, userID string, bundle registration.PublicBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encoding key bundle: %w", err)
	}
	if err := s.client.Set(ctx, s.bundleKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("storing key bundle of %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) TakeBundle(ctx context.Context, userID string) (registration.PeerBundle, error) {
	key := s.bundleKey(userID)
	for range maxTransactionAttempts {
		var issued registration.PeerBundle
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: no key bundle for %s", signaling.ErrNotFound, userID)
			}
			if err != nil {
				return fmt.Errorf("reading key bundle of %s: %w", userID, err)
			}
			var stored registration.PublicBundle
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("decoding key bundle of %s: %w", userID, err)
			}
			remaining := len(stored.OneTimePreKeys)
			issued = signaling.IssueBundle(userID, &stored)
			if remaining == 0 {
				return nil
			}
			data, err = json.Marshal(stored)
			if err != nil {
				return fmt.Errorf("encoding key bundle: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return registration.PeerBundle{}, err
		}
		return issued, nil
	}
	return registration.PeerBundle{}, fmt.Errorf("issuing key bundle of %s: gave up after %d conflicting writes", userID, maxTransactionAttempts)
}

func (s *RedisStore) GetBundle(ctx context.Context, userID string) (registration.PublicBundle, error) {
	data, err := s.client.Get(ctx, s.bundleKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return registration.PublicBundle{}, fmt.Errorf("%w: no key bundle for %s", signaling.ErrNotFound, userID)
	}
	if err != nil {
		return registration.PublicBundle{}, fmt.Errorf("reading key bundle of %s: %w", userID, err)
	}
	var stored registration.PublicBundle
	if err := json.Unmarshal(data, &stored); err != nil {
		return registration.PublicBundle{}, fmt.Errorf("decoding key bundle of %s: %w", userID, err)
	}
	return stored, nil
}

// getter is satisfied by both *redis.Client and a watching *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads one live session through cmd.
func (s *RedisStore) load(ctx context.Context, cmd getter, sessionID string) (signaling.Session, error) {
	data, err := cmd.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return signaling.Session{}, fmt.Errorf("%w: session %s", signaling.ErrNotFound, sessionID)
	}
	if err != nil {
		return signaling.Session{}, fmt.Errorf("reading session %s: %w", sessionID, err)
	}
	var session signaling.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return signaling.Session{}, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	if session.Expired(s.clock.Now()) {
		return signaling.Session{}, fmt.Errorf("%w: session %s expired", signaling.ErrNotFound, sessionID)
	}
	return session, nil
}
