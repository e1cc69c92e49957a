package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zarvd/token-signer/internal/clock"
)

var _ Cache = (*Redis)(nil)

var ErrUnavailable = errors.New("token cache unavailable")

const defaultRedisPrefix = "tok"

// Redis shares verification outcomes between processes. Keys are the
// SHA-256 of the token so raw credentials are never stored.
type Redis struct {
	client redis.UniversalClient
	prefix string
	clock  clock.Clock
}

func NewRedis(client redis.UniversalClient, prefix string, c clock.Clock) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		clock:  c,
	}
}

func (r *Redis) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + ":" + hex.EncodeToString(sum[:])
}

func (r *Redis) Get(ctx context.Context, token string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}

	key := r.key(token)
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, r.unavailable(ctx, err)
	}

	entry, ok := decodeEntry(value)
	if !ok || entry.Expired(r.clock.Now()) {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return Entry{}, false, r.unavailable(ctx, err)
		}
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (r *Redis) Set(ctx context.Context, token string, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ttl := entry.Expiry.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.SetNX(ctx, r.key(token), encodeEntry(entry), ttl).Err(); err != nil {
		return r.unavailable(ctx, err)
	}
	return nil
}

func (r *Redis) unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// entries are stored as "<0|1>:<expiry unix millis>"
func encodeEntry(entry Entry) string {
	valid := "0"
	if entry.Valid {
		valid = "1"
	}
	return valid + ":" + strconv.FormatInt(entry.Expiry.UnixMilli(), 10)
}

func decodeEntry(value string) (Entry, bool) {
	valid, expiry, found := strings.Cut(value, ":")
	if !found || (valid != "0" && valid != "1") {
		return Entry{}, false
	}
	millis, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Valid:  valid == "1",
		Expiry: time.UnixMilli(millis).UTC(),
	}, true
}
