// Package idempotency remembers the outcome of mutating requests sent with
// an Idempotency-Key header so that retries and double submits replay the
// first response instead of writing twice.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "opsdesk:idem:"
	pendingMarker = "pending"
)

// Response is a stored HTTP outcome
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store keeps request outcomes in redis for a fixed TTL
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a store. A nil client yields a store that never
// deduplicates.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Enabled reports whether the store is backed by redis
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// Key derives the storage key from the caller identity and request shape
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Reserve claims key for a new request. It returns false when another
// request already holds or completed it.
func (s *Store) Reserve(ctx context.Context, key string) (bool, error) {
	if !s.Enabled() {
		return true, nil
	}
	ok, err := s.rdb.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency setnx: %w", err)
	}
	return ok, nil
}

// Lookup returns the stored response for key. pending is true while the
// first request is still running.
func (s *Store) Lookup(ctx context.Context, key string) (resp *Response, pending bool, err error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency get: %w", err)
	}
	if raw == pendingMarker {
		return nil, true, nil
	}

	var r Response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, false, fmt.Errorf("idempotency decode: %w", err)
	}
	return &r, false, nil
}

// Complete stores the final response under key
func (s *Store) Complete(ctx context.Context, key string, resp Response) error {
	if !s.Enabled() {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency set: %w", err)
	}
	return nil
}

// Release forgets key so the request can be retried
func (s *Store) Release(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("idempotency del: %w", err)
	}
	return nil
}
