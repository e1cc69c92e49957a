package key

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	_ SigningKey        = (*AsymmetricKey)(nil)
	_ PublicKeyExporter = (*AsymmetricKey)(nil)
)

var publicKeyNamespace = uuid.MustParse("b7e4a1d0-59c2-4e8f-a316-2f90c8d47e65")

// AsymmetricKey is a local RSA or ECDSA key. Keys built from a public key
// only verify.
type AsymmetricKey struct {
	id        string
	alg       Algorithm
	hash      HashAlgorithm
	method    jwt.SigningMethod
	signKey   any
	verifyKey any

	publicKeyDER []byte
}

type Option func(*options)

type options struct {
	id string
}

// WithID overrides the id derived from the public key.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

func NewRSAKey(privateKey *rsa.PrivateKey, hash HashAlgorithm, opts ...Option) (*AsymmetricKey, error) {
	return newAsymmetricKey(AlgorithmRSA, hash, privateKey, &privateKey.PublicKey, opts)
}

func NewRSAVerificationKey(publicKey *rsa.PublicKey, hash HashAlgorithm, opts ...Option) (*AsymmetricKey, error) {
	return newAsymmetricKey(AlgorithmRSA, hash, nil, publicKey, opts)
}

func NewECKey(privateKey *ecdsa.PrivateKey, hash HashAlgorithm, opts ...Option) (*AsymmetricKey, error) {
	if err := checkCurve(privateKey.Curve, hash); err != nil {
		return nil, err
	}
	return newAsymmetricKey(AlgorithmEllipticCurve, hash, privateKey, &privateKey.PublicKey, opts)
}

func NewECVerificationKey(publicKey *ecdsa.PublicKey, hash HashAlgorithm, opts ...Option) (*AsymmetricKey, error) {
	if err := checkCurve(publicKey.Curve, hash); err != nil {
		return nil, err
	}
	return newAsymmetricKey(AlgorithmEllipticCurve, hash, nil, publicKey, opts)
}

// checkCurve enforces the JWS pairing of curve and digest.
func checkCurve(curve elliptic.Curve, hash HashAlgorithm) error {
	var want HashAlgorithm
	switch curve {
	case elliptic.P256():
		want = SHA256
	case elliptic.P384():
		want = SHA384
	case elliptic.P521():
		want = SHA512
	default:
		return fmt.Errorf("%w: unsupported curve %s", ErrUnsupportedAlgorithm, curve.Params().Name)
	}
	if hash != want {
		return fmt.Errorf("%w: curve %s requires %s, got %s", ErrUnsupportedHash, curve.Params().Name, want, hash)
	}
	return nil
}

func newAsymmetricKey(alg Algorithm, hash HashAlgorithm, signKey any, publicKey crypto.PublicKey, opts []Option) (*AsymmetricKey, error) {
	method, err := signingMethod(alg, hash)
	if err != nil {
		return nil, err
	}
	publicKeyDER, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	o := options{
		id: uuid.NewSHA1(publicKeyNamespace, publicKeyDER).String(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &AsymmetricKey{
		id:           o.id,
		alg:          alg,
		hash:         hash,
		method:       method,
		signKey:      signKey,
		verifyKey:    publicKey,
		publicKeyDER: publicKeyDER,
	}, nil
}

func (k *AsymmetricKey) ID() string {
	return k.id
}

func (k *AsymmetricKey) Algorithm() Algorithm {
	return k.alg
}

func (k *AsymmetricKey) HashAlgorithm() HashAlgorithm {
	return k.hash
}

func (k *AsymmetricKey) PublicKeyDER() []byte {
	return k.publicKeyDER
}

// CanSign reports whether the private half is available.
func (k *AsymmetricKey) CanSign() bool {
	return k.signKey != nil
}

func (k *AsymmetricKey) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k.signKey == nil {
		return nil, fmt.Errorf("%w: %s has no private key", ErrSigningUnsupported, k.id)
	}
	signature, err := k.method.Sign(string(data), k.signKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with %s: %w", k.method.Alg(), err)
	}
	return signature, nil
}

func (k *AsymmetricKey) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	return verifyWith(ctx, k.method, data, signature, k.verifyKey)
}
