package key

import (
	"bytes"
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var _ SigningKey = (*HMACKey)(nil)

var hmacKeyNamespace = uuid.MustParse("6f1d2c4e-8b3a-4f57-9c21-0d7e5a9b3c18")

// HMACKey signs and verifies locally with a shared secret.
type HMACKey struct {
	id     string
	secret []byte
	hash   HashAlgorithm
	method jwt.SigningMethod
}

func NewHMACKey(secret []byte, hash HashAlgorithm) (*HMACKey, error) {
	method, err := signingMethod(AlgorithmHMAC, hash)
	if err != nil {
		return nil, err
	}
	secret = bytes.Clone(secret)
	id, err := hmacKeyID(secret, hash)
	if err != nil {
		return nil, err
	}
	return &HMACKey{
		id:     id,
		secret: secret,
		hash:   hash,
		method: method,
	}, nil
}

// hmacKeyID derives a stable id from a keyed digest so the secret itself
// never appears in a token header.
func hmacKeyID(secret []byte, hash HashAlgorithm) (string, error) {
	digest, err := jwt.SigningMethodHS256.Sign("key-id:"+hash.String(), secret)
	if err != nil {
		return "", fmt.Errorf("failed to derive key id: %w", err)
	}
	return uuid.NewSHA1(hmacKeyNamespace, digest).String(), nil
}

func (k *HMACKey) ID() string {
	return k.id
}

func (k *HMACKey) Algorithm() Algorithm {
	return AlgorithmHMAC
}

func (k *HMACKey) HashAlgorithm() HashAlgorithm {
	return k.hash
}

func (k *HMACKey) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signature, err := k.method.Sign(string(data), k.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with %s: %w", k.method.Alg(), err)
	}
	return signature, nil
}

func (k *HMACKey) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	return verifyWith(ctx, k.method, data, signature, k.secret)
}
