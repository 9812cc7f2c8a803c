package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps every failure talking to Redis. Callers must treat it
// as "cannot decide" and fail closed.
var ErrUnavailable = errors.New("session store unavailable")

// ErrNotFound is returned when the user has no live record.
var ErrNotFound = errors.New("session not found")

// ErrRefreshMismatch is returned by ReplaceAccess when the record now holds a
// different refresh token, i.e. a newer login superseded the caller.
var ErrRefreshMismatch = errors.New("session refresh token mismatch")

const (
	replaceStatusNotFound int64 = 0
	replaceStatusMismatch int64 = 1
	replaceStatusReplaced int64 = 2
)

const replaceAccessScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "refresh") ~= ARGV[1] then
  return 1
end
redis.call("HSET", KEYS[1], "access", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 2
`

var replaceAccessLua = redis.NewScript(replaceAccessScript)

// Store is a Redis-backed session store keyed by user id.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "session"
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(userID string) string {
	return s.prefix + ":" + userID
}

// Put stores rec as the user's only record, replacing any previous one, and
// sets its expiry to ttl. Fields of an older record are never merged in.
//
//	Performance: 1 MULTI/EXEC (DEL + HSET + PEXPIRE).
func (s *Store) Put(ctx context.Context, userID string, rec *Record, ttl time.Duration) error {
	if userID == "" {
		return errors.New("session: empty user id")
	}
	if ttl <= 0 {
		return errors.New("session: non-positive ttl")
	}
	key := s.key(userID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, rec.fields())
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the user's live record.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) Get(ctx context.Context, userID string) (*Record, error) {
	values, err := s.redis.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	rec := &Record{
		Access:  values[fieldAccess],
		Refresh: values[fieldRefresh],
		CSRF:    values[fieldCSRF],
	}
	if raw, ok := values[fieldCreatedAt]; ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			rec.CreatedAt = time.Unix(unix, 0)
		}
	}
	return rec, nil
}

// Delete removes the user's record. Deleting an absent record is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ReplaceAccess swaps in a new access token if, and only if, the record still
// exists and still holds expectedRefresh, then re-arms the TTL. The check and
// the write happen in one script, so a concurrent logout or login cannot be
// undone by a refresh that read the record just before it.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) ReplaceAccess(ctx context.Context, userID, expectedRefresh, newAccess string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session: non-positive ttl")
	}
	code, err := replaceAccessLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		expectedRefresh,
		newAccess,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch code {
	case replaceStatusNotFound:
		return ErrNotFound
	case replaceStatusMismatch:
		return ErrRefreshMismatch
	case replaceStatusReplaced:
		return nil
	default:
		return fmt.Errorf("%w: unknown replace script status %d", ErrUnavailable, code)
	}
}

// TTL reports the remaining lifetime of the user's record.
func (s *Store) TTL(ctx context.Context, userID string) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl < 0 {
		return 0, ErrNotFound
	}
	return ttl, nil
}

// CountActive scans the key namespace and returns the number of live
// records. It is O(keys) and intended for operator endpoints, not hot paths.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	pattern := s.prefix + ":*"
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
