package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zarvd/token-signer/internal/token"
)

type IssueCmd struct {
	Key       string            `help:"Name of the signing key, the first signing key when empty"`
	Subject   string            `help:"sub claim"`
	Issuer    string            `help:"iss claim"`
	Audience  string            `help:"aud claim"`
	ExpiresIn time.Duration     `help:"Token lifetime, capped at maxTokenExpiration. Defaults to maxTokenExpiration"`
	Claim     map[string]string `help:"Additional string claims as key=value"`
}

func (cmd *IssueCmd) Run(ctx context.Context, logger *slog.Logger, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	ring, err := newStaticRing(cfg)
	if err != nil {
		return err
	}

	lifetime := cfg.MaxTokenExpiration
	if cmd.ExpiresIn > 0 && cmd.ExpiresIn < lifetime {
		lifetime = cmd.ExpiresIn
	}

	factory := token.NewFactory(ring, token.WithLogger(logger))
	build := func(c token.Claims) {
		for name, value := range cmd.Claim {
			c[name] = value
		}
		now := time.Now()
		c.SetSubject(cmd.Subject)
		c.SetIssuer(cmd.Issuer)
		c.SetAudience(cmd.Audience)
		c.SetIssuedAt(now)
		c.SetExpiry(now.Add(lifetime))
	}

	var issued *token.Issued
	if cmd.Key != "" {
		issued, err = factory.CreateWithKey(ctx, build, cmd.Key)
	} else {
		issued, err = factory.Create(ctx, build)
	}
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	logger.Info("issued token",
		slog.String("token-id", issued.ID),
		slog.Int64("expires-in", issued.ExpiresIn),
	)
	_, err = fmt.Fprintln(os.Stdout, issued.Token)
	return err
}
