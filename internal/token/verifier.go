package token

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/zarvd/token-signer/internal/cache"
	"github.com/zarvd/token-signer/internal/clock"
	"github.com/zarvd/token-signer/internal/key"
)

// DefaultCacheLifetime bounds cached outcomes for tokens without an exp
// claim, and for every rejected token.
const DefaultCacheLifetime = 5 * time.Minute

type Verifier struct {
	keys   KeyRing
	cache  cache.Cache
	clock  clock.Clock
	logger *slog.Logger
}

func NewVerifier(keys KeyRing, opts ...Option) *Verifier {
	o := newOptions(opts)
	return &Verifier{
		keys:   keys,
		cache:  o.cache,
		clock:  o.clock,
		logger: o.logger,
	}
}

// Verify authenticates raw and returns its claims. Failures caused by the
// token itself match ErrInvalidToken; key and cancellation errors are
// returned unchanged.
//
// exp and nbf are not checked against the current time. Callers that need a
// validity window must check the returned claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, invalid(reasonEmpty)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, invalid(reasonStructure)
	}

	header, err := decodeHeader(parts[0])
	if err != nil {
		return nil, err
	}
	alg, hash, err := parseAlgorithm(header.Algorithm())
	if err != nil {
		return nil, err
	}

	entry, hit, err := v.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	if hit {
		v.logger.Debug("token cache hit", slog.Bool("valid", entry.Valid))
		if !entry.Valid {
			return nil, invalid(reasonInvalid)
		}
		return decodeClaims(parts[1])
	}

	verificationKey := v.resolveKey(header.KeyID(), alg, hash)

	valid := false
	if signature, err := decodeSegment(parts[2]); err == nil {
		valid, err = verificationKey.Verify(ctx, []byte(parts[0]+"."+parts[1]), signature)
		if err != nil {
			return nil, err
		}
	}
	if !valid {
		if err := v.remember(ctx, raw, false, time.Time{}); err != nil {
			return nil, err
		}
		return nil, invalid(reasonInvalid)
	}

	claims, err := decodeClaims(parts[1])
	if err != nil {
		if cacheErr := v.remember(ctx, raw, false, time.Time{}); cacheErr != nil {
			return nil, cacheErr
		}
		return nil, err
	}

	expiry, _ := claims.Expiry()
	if err := v.remember(ctx, raw, true, expiry); err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) resolveKey(keyID string, alg key.Algorithm, hash key.HashAlgorithm) key.VerificationKey {
	if keyID != "" {
		if k, ok := v.keys.VerificationKeyByID(keyID); ok {
			return k
		}
	}
	return v.keys.VerificationKey(alg, hash)
}

// lookup treats a failing cache backend as a miss. Only cancellation is
// returned.
func (v *Verifier) lookup(ctx context.Context, raw string) (cache.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return cache.Entry{}, false, err
	}
	entry, ok, err := v.cache.Get(ctx, raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cache.Entry{}, false, ctxErr
		}
		v.logger.Warn("failed to read token cache", slog.Any("error", err))
		return cache.Entry{}, false, nil
	}
	return entry, ok, nil
}

// remember caches an outcome. A zero expiry uses DefaultCacheLifetime.
func (v *Verifier) remember(ctx context.Context, raw string, valid bool, expiry time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if expiry.IsZero() {
		expiry = v.clock.Now().Add(DefaultCacheLifetime)
	}
	if err := v.cache.Set(ctx, raw, cache.Entry{Valid: valid, Expiry: expiry}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		v.logger.Warn("failed to write token cache", slog.Any("error", err))
	}
	return nil
}
