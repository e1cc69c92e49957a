package token

import (
	"log/slog"

	"github.com/zarvd/token-signer/internal/cache"
	"github.com/zarvd/token-signer/internal/clock"
	"github.com/zarvd/token-signer/internal/key"
)

// KeyRing resolves keys for signing and verification. key.Ring and
// key.Rotator implement it.
type KeyRing interface {
	SigningKey() (key.SigningKey, error)
	SigningKeyByName(name string) (key.SigningKey, error)
	VerificationKey(alg key.Algorithm, hash key.HashAlgorithm) key.VerificationKey
	VerificationKeyByID(id string) (key.VerificationKey, bool)
}

type Option func(*options)

type options struct {
	clock  clock.Clock
	cache  cache.Cache
	logger *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{
		clock:  clock.UTC{},
		cache:  cache.Noop{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCache sets the verification outcome cache. The default stores nothing.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}
