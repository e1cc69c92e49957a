package key

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoSigningKey         = errors.New("no signing key available")
	ErrKeyNotFound          = errors.New("key not found")
	ErrUnsupportedHash      = errors.New("unsupported hash algorithm")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrSigningUnsupported   = errors.New("key cannot sign")
)

// NotFoundError is returned when a named signing key is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("a key with the name %q could not be found", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// VerificationKey checks a signature against data.
type VerificationKey interface {
	Verify(ctx context.Context, data, signature []byte) (bool, error)
}

// SigningKey produces signatures and reports the identity and algorithm
// that end up in a token header.
type SigningKey interface {
	VerificationKey

	ID() string
	Algorithm() Algorithm
	HashAlgorithm() HashAlgorithm
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

// PublicKeyExporter is implemented by keys with a publishable public half.
type PublicKeyExporter interface {
	PublicKeyDER() []byte
}

type PublicKey struct {
	KeyID string
	Key   []byte
}

// Algorithm is the signature algorithm family of a key.
type Algorithm int

const (
	AlgorithmRSA Algorithm = iota + 1
	AlgorithmEllipticCurve
	AlgorithmHMAC
)

// Prefix returns the two letter prefix of the JWS algorithm code.
func (a Algorithm) Prefix() string {
	switch a {
	case AlgorithmRSA:
		return "RS"
	case AlgorithmEllipticCurve:
		return "ES"
	case AlgorithmHMAC:
		return "HS"
	default:
		return ""
	}
}

func (a Algorithm) String() string {
	switch a {
	case AlgorithmRSA:
		return "RSA"
	case AlgorithmEllipticCurve:
		return "EllipticCurve"
	case AlgorithmHMAC:
		return "HMAC"
	default:
		return "Algorithm(" + strconv.Itoa(int(a)) + ")"
	}
}

// ParseAlgorithm maps a configuration name such as "rsa" to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rsa", "rs":
		return AlgorithmRSA, nil
	case "ec", "ecdsa", "es":
		return AlgorithmEllipticCurve, nil
	case "hmac", "hs":
		return AlgorithmHMAC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// HashAlgorithm is the digest used when signing.
type HashAlgorithm int

const (
	SHA256 HashAlgorithm = iota + 1
	SHA384
	SHA512
)

// Size returns the digest size in bits, or 0 for an unknown hash.
func (h HashAlgorithm) Size() int {
	switch h {
	case SHA256:
		return 256
	case SHA384:
		return 384
	case SHA512:
		return 512
	default:
		return 0
	}
}

func (h HashAlgorithm) String() string {
	if size := h.Size(); size != 0 {
		return "SHA" + strconv.Itoa(size)
	}
	return "HashAlgorithm(" + strconv.Itoa(int(h)) + ")"
}

// ParseHashAlgorithm accepts "SHA256", "SHA-256" and "sha256" style names.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	normalized := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "")
	switch normalized {
	case "SHA256":
		return SHA256, nil
	case "SHA384":
		return SHA384, nil
	case "SHA512":
		return SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedHash, s)
	}
}

// Code returns the JWS algorithm code for a key, e.g. RS256.
func Code(alg Algorithm, hash HashAlgorithm) string {
	return alg.Prefix() + strconv.Itoa(hash.Size())
}

// Mode controls whether a registered key may be selected for signing.
type Mode int

const (
	ModeSignAndVerify Mode = iota
	ModeVerifyOnly
)

func (m Mode) String() string {
	switch m {
	case ModeSignAndVerify:
		return "sign-and-verify"
	case ModeVerifyOnly:
		return "verify-only"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sign-and-verify", "signandverify":
		return ModeSignAndVerify, nil
	case "verify-only", "verifyonly":
		return ModeVerifyOnly, nil
	default:
		return 0, fmt.Errorf("unknown key mode %q", s)
	}
}

// Definition registers a key with the ring. Name is optional.
type Definition struct {
	Name string
	Key  SigningKey
	Mode Mode
}
