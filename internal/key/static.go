package key

import (
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

func DecodeRSAPrivateKey(p string) (*rsa.PrivateKey, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(p))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return privateKey, nil
}

// FromPEM builds an RSA or EC key from PEM content. A private key yields a
// key that signs and verifies, anything else a verification-only key.
func FromPEM(alg Algorithm, p []byte, hash HashAlgorithm, opts ...Option) (*AsymmetricKey, error) {
	block, _ := pem.Decode(p)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	private := strings.Contains(block.Type, "PRIVATE KEY")

	switch {
	case alg == AlgorithmRSA && private:
		privateKey, err := DecodeRSAPrivateKey(string(p))
		if err != nil {
			return nil, err
		}
		return NewRSAKey(privateKey, hash, opts...)
	case alg == AlgorithmRSA:
		publicKey, err := jwt.ParseRSAPublicKeyFromPEM(p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		return NewRSAVerificationKey(publicKey, hash, opts...)
	case alg == AlgorithmEllipticCurve && private:
		privateKey, err := jwt.ParseECPrivateKeyFromPEM(p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return NewECKey(privateKey, hash, opts...)
	case alg == AlgorithmEllipticCurve:
		publicKey, err := jwt.ParseECPublicKeyFromPEM(p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		return NewECVerificationKey(publicKey, hash, opts...)
	default:
		return nil, fmt.Errorf("%w: %s keys cannot be loaded from PEM", ErrUnsupportedAlgorithm, alg)
	}
}
