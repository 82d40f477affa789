package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

// ErrInFlight is returned by Reserve when another request holds the key.
var ErrInFlight = errors.New("idempotency key in flight")

// StoredResponse is the replayable outcome of a completed request.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type IdempotencyStore interface {
	// Reserve claims key. It returns the stored response when the key already
	// completed, ErrInFlight while another request holds it, and (nil, nil) when
	// the caller now owns the key.
	Reserve(ctx context.Context, key string) (*StoredResponse, error)
	Complete(ctx context.Context, key string, resp StoredResponse) error
	Release(ctx context.Context, key string) error
}

type idempotencyStore struct {
	log        *logger.Logger
	rdb        *goredis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

const (
	keyPrefix    = "cm:idem:"
	pendingValue = "pending"
)

func NewIdempotencyStore(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &idempotencyStore{
		log:        log.With("service", "IdempotencyStore"),
		rdb:        rdb,
		ttl:        ttl,
		pendingTTL: time.Minute,
	}
}

func (s *idempotencyStore) Reserve(ctx context.Context, key string) (*StoredResponse, error) {
	if s == nil || s.rdb == nil {
		return nil, fmt.Errorf("idempotency store not initialized")
	}
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, pendingValue, s.pendingTTL).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		// Expired between SETNX and GET; let the caller retry.
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, err
	}
	return decodeStored(raw)
}

func (s *idempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+key, raw, s.ttl).Err()
}

func (s *idempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, keyPrefix+key).Err()
}

func decodeStored(raw []byte) (*StoredResponse, error) {
	if string(raw) == pendingValue {
		return nil, ErrInFlight
	}
	var out StoredResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	return &out, nil
}
