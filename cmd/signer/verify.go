package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zarvd/token-signer/internal/token"
)

type VerifyCmd struct {
	Token string `arg:"" optional:"" default:"-" help:"Token to verify, read from stdin when -"`
}

func (cmd *VerifyCmd) Run(ctx context.Context, logger *slog.Logger, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	ring, err := newStaticRing(cfg)
	if err != nil {
		return err
	}
	tokenCache, closeCache, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	raw := cmd.Token
	if raw == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		raw = strings.TrimSpace(string(b))
	}

	verifier := token.NewVerifier(ring,
		token.WithCache(tokenCache),
		token.WithLogger(logger),
	)
	claims, err := verifier.Verify(ctx, raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(claims)
}
