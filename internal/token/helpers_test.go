package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zarvd/token-signer/internal/key"
)

// countingKey wraps a real key and counts verifications.
type countingKey struct {
	key.SigningKey
	verifies atomic.Int32
}

func (k *countingKey) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	k.verifies.Add(1)
	return k.SigningKey.Verify(ctx, data, signature)
}

type stubVerifier struct {
	result bool
	err    error
	calls  atomic.Int32
}

func (k *stubVerifier) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	k.calls.Add(1)
	return k.result, k.err
}

// fakeRing records which lookups the verifier performs.
type fakeRing struct {
	signing   key.SigningKey
	byID      map[string]key.VerificationKey
	aggregate key.VerificationKey

	byIDCalls      []string
	aggregateCalls []string
}

func (r *fakeRing) SigningKey() (key.SigningKey, error) {
	if r.signing == nil {
		return nil, key.ErrNoSigningKey
	}
	return r.signing, nil
}

func (r *fakeRing) SigningKeyByName(name string) (key.SigningKey, error) {
	return nil, &key.NotFoundError{Name: name}
}

func (r *fakeRing) VerificationKey(alg key.Algorithm, hash key.HashAlgorithm) key.VerificationKey {
	r.aggregateCalls = append(r.aggregateCalls, key.Code(alg, hash))
	if r.aggregate == nil {
		return key.NewAggregate()
	}
	return r.aggregate
}

func (r *fakeRing) VerificationKeyByID(id string) (key.VerificationKey, bool) {
	r.byIDCalls = append(r.byIDCalls, id)
	k, ok := r.byID[id]
	return k, ok
}

func newHMACKey(t *testing.T, secret string, hash key.HashAlgorithm) *key.HMACKey {
	t.Helper()
	k, err := key.NewHMACKey([]byte(secret), hash)
	require.NoError(t, err)
	return k
}

func encodeJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(b)
}

// signRaw builds a token from arbitrary header and claims values.
func signRaw(t *testing.T, header, claims any, k key.SigningKey) string {
	t.Helper()
	data := encodeJSON(t, header) + "." + encodeJSON(t, claims)
	signature, err := k.Sign(context.Background(), []byte(data))
	require.NoError(t, err)
	return data + "." + base64.RawURLEncoding.EncodeToString(signature)
}

func decodePart(t *testing.T, token string, i int) map[string]any {
	t.Helper()
	parts := splitToken(t, token)
	b, err := base64.RawURLEncoding.DecodeString(parts[i])
	require.NoError(t, err)
	var rv map[string]any
	require.NoError(t, json.Unmarshal(b, &rv))
	return rv
}

func splitToken(t *testing.T, token string) []string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	return parts
}
