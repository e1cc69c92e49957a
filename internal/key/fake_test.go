package key

import (
	"context"
	"sync/atomic"
)

type fakeKey struct {
	id     string
	alg    Algorithm
	hash   HashAlgorithm
	result bool
	err    error

	calls atomic.Int32
}

func (k *fakeKey) ID() string                   { return k.id }
func (k *fakeKey) Algorithm() Algorithm         { return k.alg }
func (k *fakeKey) HashAlgorithm() HashAlgorithm { return k.hash }

func (k *fakeKey) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return []byte(k.id), nil
}

func (k *fakeKey) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	k.calls.Add(1)
	return k.result, k.err
}
