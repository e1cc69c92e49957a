package token

import "errors"

// ErrInvalidToken matches every rejection of untrusted token input.
var ErrInvalidToken = errors.New("token is invalid")

const (
	reasonEmpty                = "token is empty"
	reasonStructure            = "invalid token structure"
	reasonUnsupportedAlgorithm = "unsupported algorithm"
	reasonUnsupportedHash      = "unsupported hash algorithm"
	reasonInvalid              = "token is invalid"
)

// InvalidTokenError carries a short reason that is safe to return to the
// presenter of the token.
type InvalidTokenError struct {
	Reason string
}

func (e *InvalidTokenError) Error() string {
	return "token is invalid: " + e.Reason
}

func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

func invalid(reason string) error {
	return &InvalidTokenError{Reason: reason}
}
