// Package server exposes a token factory and its key ring over the
// Kubernetes external JWT signer gRPC API.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zarvd/token-signer/internal/key"
	"github.com/zarvd/token-signer/internal/token"
)

// Signer signs base64url encoded claims. *token.Factory implements it.
type Signer interface {
	Sign(ctx context.Context, encodedClaims string) (*token.Signed, error)
}

// KeySet publishes verification keys. *key.Ring and *key.Rotator implement
// it.
type KeySet interface {
	PublicKeys() []key.PublicKey
	UpdatedAt() time.Time
}

type Config struct {
	MaxTokenExpiration time.Duration
	// RefreshHint defaults to half of MaxTokenExpiration.
	RefreshHint time.Duration
}

func (c Config) refreshHint() time.Duration {
	if c.RefreshHint > 0 {
		return c.RefreshHint
	}
	return c.MaxTokenExpiration / 2
}

type backend struct {
	logger *slog.Logger
	signer Signer
	keys   KeySet
	cfg    Config
}

func (b *backend) sign(ctx context.Context, logger *slog.Logger, claims string) (*token.Signed, error) {
	if _, err := base64.RawURLEncoding.DecodeString(claims); err != nil {
		logger.Error("failed to decode claims", slog.Any("error", err))
		return nil, status.Errorf(codes.InvalidArgument, "not a valid base64url encoded JWT claims")
	}

	signed, err := b.signer.Sign(ctx, claims)
	if err != nil {
		logger.Error("failed to sign JWT", slog.Any("error", err))
		return nil, signError(err)
	}

	logger.Info("signed JWT",
		slog.String("key-id", signed.KeyID),
		slog.String("token-id", signed.ID),
	)
	return signed, nil
}

func (b *backend) publicKeys(logger *slog.Logger) []key.PublicKey {
	publicKeys := b.keys.PublicKeys()

	keyIDs := make([]string, 0, len(publicKeys))
	for _, publicKey := range publicKeys {
		keyIDs = append(keyIDs, publicKey.KeyID)
	}
	logger.Info("fetched keys",
		slog.Int("num-keys", len(publicKeys)),
		slog.Any("key-ids", keyIDs),
		slog.Time("data-timestamp", b.keys.UpdatedAt()),
	)
	return publicKeys
}

func signError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	case errors.Is(err, key.ErrKeyNotFound), errors.Is(err, key.ErrNoSigningKey):
		return status.Errorf(codes.FailedPrecondition, "no key available to sign JWT")
	default:
		return status.Errorf(codes.Internal, "not able to sign JWT")
	}
}
