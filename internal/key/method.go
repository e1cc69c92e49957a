package key

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

func signingMethod(alg Algorithm, hash HashAlgorithm) (jwt.SigningMethod, error) {
	if alg.Prefix() == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	if hash.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, hash)
	}
	method := jwt.GetSigningMethod(Code(alg, hash))
	if method == nil {
		return nil, fmt.Errorf("%w: %s with %s", ErrUnsupportedHash, alg, hash)
	}
	return method, nil
}

// verifyWith runs a golang-jwt verification and separates a signature
// mismatch (false, nil) from a misconfigured key (false, err).
func verifyWith(ctx context.Context, method jwt.SigningMethod, data, signature []byte, verifyKey any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := method.Verify(string(data), signature, verifyKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, jwt.ErrInvalidKeyType), errors.Is(err, jwt.ErrHashUnavailable):
		return false, fmt.Errorf("failed to verify with %s: %w", method.Alg(), err)
	default:
		return false, nil
	}
}
