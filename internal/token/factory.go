package token

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zarvd/token-signer/internal/clock"
	"github.com/zarvd/token-signer/internal/key"
)

// Issued is a newly created token.
type Issued struct {
	ID    string
	Token string
	// ExpiresIn is the number of seconds until the exp claim, 0 without one.
	ExpiresIn int64
}

// Signed holds the encoded segments of a token signed over caller-supplied
// claims.
type Signed struct {
	ID        string
	KeyID     string
	Header    string
	Claims    string
	Signature string
}

func (s *Signed) Token() string {
	return s.Header + "." + s.Claims + "." + s.Signature
}

type Factory struct {
	keys  KeyRing
	clock clock.Clock
}

func NewFactory(keys KeyRing, opts ...Option) *Factory {
	o := newOptions(opts)
	return &Factory{
		keys:  keys,
		clock: o.clock,
	}
}

// Create signs the claims populated by build with the default signing key.
func (f *Factory) Create(ctx context.Context, build func(Claims)) (*Issued, error) {
	k, err := f.keys.SigningKey()
	if err != nil {
		return nil, err
	}
	return f.create(ctx, k, build)
}

// CreateWithKey signs with the signing key registered under keyName.
func (f *Factory) CreateWithKey(ctx context.Context, build func(Claims), keyName string) (*Issued, error) {
	k, err := f.keys.SigningKeyByName(keyName)
	if err != nil {
		return nil, err
	}
	return f.create(ctx, k, build)
}

// Sign signs an already encoded claims segment with the default signing key.
func (f *Factory) Sign(ctx context.Context, encodedClaims string) (*Signed, error) {
	k, err := f.keys.SigningKey()
	if err != nil {
		return nil, err
	}
	return f.sign(ctx, k, encodedClaims)
}

func (f *Factory) SignWithKey(ctx context.Context, encodedClaims, keyName string) (*Signed, error) {
	k, err := f.keys.SigningKeyByName(keyName)
	if err != nil {
		return nil, err
	}
	return f.sign(ctx, k, encodedClaims)
}

func (f *Factory) create(ctx context.Context, k key.SigningKey, build func(Claims)) (*Issued, error) {
	claims := Claims{}
	if build != nil {
		build(claims)
	}
	encodedClaims, err := encodeSegment(claims.compact())
	if err != nil {
		return nil, fmt.Errorf("failed to encode claims: %w", err)
	}

	signed, err := f.sign(ctx, k, encodedClaims)
	if err != nil {
		return nil, err
	}

	var expiresIn int64
	if expiry, ok := claims.Expiry(); ok {
		expiresIn = int64(expiry.Sub(f.clock.Now()).Seconds())
	}

	return &Issued{
		ID:        signed.ID,
		Token:     signed.Token(),
		ExpiresIn: expiresIn,
	}, nil
}

func (f *Factory) sign(ctx context.Context, k key.SigningKey, encodedClaims string) (*Signed, error) {
	header := NewHeader()
	header.SetID(uuid.NewString())
	header.SetKeyID(k.ID())
	header.SetAlgorithm(key.Code(k.Algorithm(), k.HashAlgorithm()))

	encodedHeader, err := encodeSegment(header.compact())
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}

	signature, err := k.Sign(ctx, []byte(encodedHeader+"."+encodedClaims))
	if err != nil {
		return nil, err
	}

	return &Signed{
		ID:        header.ID(),
		KeyID:     header.KeyID(),
		Header:    encodedHeader,
		Claims:    encodedClaims,
		Signature: segmentEncoding.EncodeToString(signature),
	}, nil
}
