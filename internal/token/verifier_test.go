package token

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zarvd/token-signer/internal/cache"
	"github.com/zarvd/token-signer/internal/clock"
	"github.com/zarvd/token-signer/internal/key"
)

type failingCache struct {
	err error
}

func (c failingCache) Get(ctx context.Context, token string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, c.err
}

func (c failingCache) Set(ctx context.Context, token string, entry cache.Entry) error {
	return c.err
}

func requireInvalid(t *testing.T, err error, reason string) {
	t.Helper()
	require.ErrorIs(t, err, ErrInvalidToken)
	var invalidToken *InvalidTokenError
	require.ErrorAs(t, err, &invalidToken)
	require.Equal(t, reason, invalidToken.Reason)
}

func TestVerifier_Structure(t *testing.T) {
	t.Parallel()

	k := newHMACKey(t, "foo", key.SHA256)
	ring := &fakeRing{aggregate: &stubVerifier{result: true}}
	v := NewVerifier(ring)

	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "empty", raw: "", reason: reasonEmpty},
		{name: "whitespace", raw: " \t\n", reason: reasonEmpty},
		{name: "one part", raw: "hello", reason: reasonStructure},
		{name: "two parts", raw: "hello.world", reason: reasonStructure},
		{name: "four parts", raw: "one.two.three.four", reason: reasonStructure},
		{name: "header not base64", raw: "!!!.e30.c2ln", reason: reasonStructure},
		{name: "header not JSON", raw: base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".e30.c2ln", reason: reasonStructure},
		{name: "header is null", raw: encodeJSON(t, nil) + ".e30.c2ln", reason: reasonStructure},
		{name: "header is an array", raw: encodeJSON(t, []string{"HS256"}) + ".e30.c2ln", reason: reasonStructure},
		{name: "header without alg", raw: signRaw(t, map[string]string{"typ": "jwt"}, map[string]any{}, k), reason: reasonUnsupportedAlgorithm},
		{name: "unknown family", raw: signRaw(t, map[string]string{"alg": "XS256"}, map[string]any{}, k), reason: reasonUnsupportedAlgorithm},
		{name: "unknown hash", raw: signRaw(t, map[string]string{"alg": "RX272"}, map[string]any{}, k), reason: reasonUnsupportedHash},
		{name: "none", raw: signRaw(t, map[string]string{"alg": "none"}, map[string]any{}, k), reason: reasonUnsupportedAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.raw)
			requireInvalid(t, err, tt.reason)
		})
	}

	require.Empty(t, ring.byIDCalls)
	require.Empty(t, ring.aggregateCalls)
}

func TestVerifier_KeyResolution(t *testing.T) {
	t.Parallel()

	k := newHMACKey(t, "foo", key.SHA256)

	t.Run("known kid", func(t *testing.T) {
		byID := &countingKey{SigningKey: k}
		ring := &fakeRing{byID: map[string]key.VerificationKey{k.ID(): byID}}
		raw := signRaw(t, map[string]string{"alg": "HS256", "kid": k.ID()}, map[string]any{"foo": "bar"}, k)

		claims, err := NewVerifier(ring).Verify(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, "bar", claims["foo"])
		require.Equal(t, []string{k.ID()}, ring.byIDCalls)
		require.Empty(t, ring.aggregateCalls)
		require.EqualValues(t, 1, byID.verifies.Load())
	})

	t.Run("unknown kid falls back to the algorithm", func(t *testing.T) {
		aggregate := &countingKey{SigningKey: k}
		ring := &fakeRing{aggregate: aggregate}
		raw := signRaw(t, map[string]string{"alg": "HS256", "kid": "rotated-away"}, map[string]any{}, k)

		_, err := NewVerifier(ring).Verify(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, []string{"rotated-away"}, ring.byIDCalls)
		require.Equal(t, []string{"HS256"}, ring.aggregateCalls)
		require.EqualValues(t, 1, aggregate.verifies.Load())
	})

	t.Run("no kid", func(t *testing.T) {
		ring := &fakeRing{aggregate: &countingKey{SigningKey: k}}
		raw := signRaw(t, map[string]string{"alg": "HS256"}, map[string]any{}, k)

		_, err := NewVerifier(ring).Verify(context.Background(), raw)
		require.NoError(t, err)
		require.Empty(t, ring.byIDCalls)
		require.Equal(t, []string{"HS256"}, ring.aggregateCalls)
	})

	t.Run("no matching key", func(t *testing.T) {
		ring := &fakeRing{}
		raw := signRaw(t, map[string]string{"alg": "HS512"}, map[string]any{}, k)

		_, err := NewVerifier(ring).Verify(context.Background(), raw)
		requireInvalid(t, err, reasonInvalid)
		require.Equal(t, []string{"HS512"}, ring.aggregateCalls)
	})
}

func TestVerifier_Signature(t *testing.T) {
	t.Parallel()

	k := newHMACKey(t, "foo", key.SHA256)
	ring := key.NewRing(key.Definition{Key: k})
	f := NewFactory(ring)
	v := NewVerifier(ring)

	issued, err := f.Create(context.Background(), func(c Claims) { c["foo"] = "bar" })
	require.NoError(t, err)

	t.Run("accepts the issued token", func(t *testing.T) {
		claims, err := v.Verify(context.Background(), issued.Token)
		require.NoError(t, err)
		require.Equal(t, Claims{"foo": "bar"}, claims)
	})

	t.Run("accepts trailing padding", func(t *testing.T) {
		_, err := v.Verify(context.Background(), issued.Token+"==")
		require.NoError(t, err)
	})

	t.Run("rejects every corrupted signature character", func(t *testing.T) {
		parts := splitToken(t, issued.Token)
		for i := range parts[2] {
			replacement := "A"
			if parts[2][i] == 'A' {
				replacement = "B"
			}
			signature := parts[2][:i] + replacement + parts[2][i+1:]
			_, err := v.Verify(context.Background(), parts[0]+"."+parts[1]+"."+signature)
			requireInvalid(t, err, reasonInvalid)
		}
	})

	t.Run("rejects an undecodable signature", func(t *testing.T) {
		parts := splitToken(t, issued.Token)
		_, err := v.Verify(context.Background(), parts[0]+"."+parts[1]+".!!!")
		requireInvalid(t, err, reasonInvalid)
	})

	t.Run("rejects modified claims", func(t *testing.T) {
		parts := splitToken(t, issued.Token)
		claims := encodeJSON(t, map[string]string{"foo": "baz"})
		_, err := v.Verify(context.Background(), parts[0]+"."+claims+"."+parts[2])
		requireInvalid(t, err, reasonInvalid)
	})

	t.Run("rejects a different secret", func(t *testing.T) {
		other := newHMACKey(t, "bar", key.SHA256)
		raw := signRaw(t, map[string]string{"alg": "HS256"}, map[string]any{}, other)
		_, err := v.Verify(context.Background(), raw)
		requireInvalid(t, err, reasonInvalid)
	})
}

func TestVerifier_Cache(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fixed := clock.Func(func() time.Time { return now })
	k := newHMACKey(t, "foo", key.SHA256)

	t.Run("invalid token is verified once", func(t *testing.T) {
		counting := &countingKey{SigningKey: k}
		c := cache.NewMemory(fixed)
		v := NewVerifier(&fakeRing{aggregate: counting}, WithCache(c), WithClock(fixed))

		other := newHMACKey(t, "bar", key.SHA256)
		raw := signRaw(t, map[string]string{"alg": "HS256"}, map[string]any{}, other)

		_, first := v.Verify(context.Background(), raw)
		requireInvalid(t, first, reasonInvalid)
		_, second := v.Verify(context.Background(), raw)
		requireInvalid(t, second, reasonInvalid)
		require.Equal(t, first.Error(), second.Error())
		require.EqualValues(t, 1, counting.verifies.Load())

		entry, ok, err := c.Get(context.Background(), raw)
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, entry.Valid)
		require.Equal(t, now.Add(DefaultCacheLifetime), entry.Expiry)
	})

	t.Run("valid token is verified once", func(t *testing.T) {
		counting := &countingKey{SigningKey: k}
		c := cache.NewMemory(fixed)
		v := NewVerifier(&fakeRing{aggregate: counting}, WithCache(c), WithClock(fixed))

		expiry := now.Add(time.Hour)
		raw := signRaw(t, map[string]string{"alg": "HS256"}, map[string]any{"foo": "bar", "exp": expiry.Unix()}, k)

		first, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		second, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.EqualValues(t, 1, counting.verifies.Load())

		entry, ok, err := c.Get(context.Background(), raw)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, entry.Valid)
		require.Equal(t, expiry, entry.Expiry)
	})

	t.Run("valid token without exp uses the default lifetime", func(t *testing.T) {
		c := cache.NewMemory(fixed)
		v := NewVerifier(&fakeRing{aggregate: k}, WithCache(c), WithClock(fixed))
		raw := signRaw(t, map[string]string{"alg": "HS256"}, map[string]any{}, k)

		_, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)

		entry, ok, err := c.Get(context.Background(), raw)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, now.Add(DefaultCacheLifetime), entry.Expiry)
	})

	t.Run("corrupt claims with a valid signature are cached as invalid", func(t *testing.T) {
		counting := &countingKey{SigningKey: k}
		c := cache.NewMemory(fixed)
		v := NewVerifier(&fakeRing{aggregate: counting}, WithCache(c), WithClock(fixed))

		data := encodeJSON(t, map[string]string{"alg": "HS256"}) + "." + base64.RawURLEncoding.EncodeToString([]byte("not json"))
		signature, err := k.Sign(context.Background(), []byte(data))
		require.NoError(t, err)
		raw := data + "." + base64.RawURLEncoding.EncodeToString(signature)

		_, err = v.Verify(context.Background(), raw)
		requireInvalid(t, err, reasonStructure)
		_, err = v.Verify(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.EqualValues(t, 1, counting.verifies.Load())

		entry, ok, err := c.Get(context.Background(), raw)
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, entry.Valid)
	})

	t.Run("cached outcomes skip verification", func(t *testing.T) {
		stub := &stubVerifier{result: true}
		c := cache.NewMemory(fixed)
		v := NewVerifier(&fakeRing{aggregate: stub}, WithCache(c), WithClock(fixed))

		header := encodeJSON(t, map[string]string{"alg": "HS256"})
		validRaw := header + "." + encodeJSON(t, map[string]string{"sub": "cached"}) + ".c2ln"
		invalidRaw := header + ".e30.c2ln"
		corruptRaw := header + ".!!!.c2ln"
		expiry := now.Add(time.Minute)
		require.NoError(t, c.Set(context.Background(), validRaw, cache.Entry{Valid: true, Expiry: expiry}))
		require.NoError(t, c.Set(context.Background(), invalidRaw, cache.Entry{Valid: false, Expiry: expiry}))
		require.NoError(t, c.Set(context.Background(), corruptRaw, cache.Entry{Valid: true, Expiry: expiry}))

		claims, err := v.Verify(context.Background(), validRaw)
		require.NoError(t, err)
		require.Equal(t, "cached", claims.Subject())

		_, err = v.Verify(context.Background(), invalidRaw)
		requireInvalid(t, err, reasonInvalid)

		_, err = v.Verify(context.Background(), corruptRaw)
		requireInvalid(t, err, reasonStructure)

		require.Zero(t, stub.calls.Load())
	})

	t.Run("failing cache is a miss", func(t *testing.T) {
		counting := &countingKey{SigningKey: k}
		v := NewVerifier(&fakeRing{aggregate: counting}, WithCache(failingCache{err: errors.New("connection refused")}))
		raw := signRaw(t, map[string]string{"alg": "HS256"}, map[string]any{"foo": "bar"}, k)

		for range 2 {
			claims, err := v.Verify(context.Background(), raw)
			require.NoError(t, err)
			require.Equal(t, "bar", claims["foo"])
		}
		require.EqualValues(t, 2, counting.verifies.Load())
	})
}

func TestVerifier_Errors(t *testing.T) {
	t.Parallel()

	k := newHMACKey(t, "foo", key.SHA256)
	raw := signRaw(t, map[string]string{"alg": "HS256"}, map[string]any{}, k)

	t.Run("key errors propagate and are not cached", func(t *testing.T) {
		boom := errors.New("hsm offline")
		stub := &stubVerifier{err: boom}
		c := cache.NewMemory(clock.UTC{})
		v := NewVerifier(&fakeRing{aggregate: stub}, WithCache(c))

		for range 2 {
			_, err := v.Verify(context.Background(), raw)
			require.ErrorIs(t, err, boom)
			require.NotErrorIs(t, err, ErrInvalidToken)
		}
		require.EqualValues(t, 2, stub.calls.Load())

		_, ok, err := c.Get(context.Background(), raw)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("aggregate member errors propagate when nothing verifies", func(t *testing.T) {
		boom := errors.New("hsm offline")
		v := NewVerifier(&fakeRing{aggregate: key.NewAggregate(&stubVerifier{err: boom}, &stubVerifier{})})

		_, err := v.Verify(context.Background(), raw)
		require.ErrorIs(t, err, boom)
	})

	t.Run("aggregate member errors are ignored when another key verifies", func(t *testing.T) {
		v := NewVerifier(&fakeRing{aggregate: key.NewAggregate(&stubVerifier{err: errors.New("hsm offline")}, k)})

		_, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		stub := &stubVerifier{result: true}
		v := NewVerifier(&fakeRing{aggregate: stub}, WithCache(cache.NewMemory(clock.UTC{})))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := v.Verify(ctx, raw)
		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, ErrInvalidToken)
		require.Zero(t, stub.calls.Load())
	})

	t.Run("invalid input is rejected before cancellation is observed", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewVerifier(&fakeRing{}).Verify(ctx, strings.Repeat("a", 10))
		requireInvalid(t, err, reasonStructure)
	})
}
