package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

type Globals struct {
	Config   string `short:"c" type:"existingfile" required:"" help:"Path to the YAML configuration file"`
	LogLevel string `enum:"debug,info,warn,error" default:"info" help:"Minimum log level"`
}

type CLI struct {
	Globals

	Serve  ServeCmd  `cmd:"" help:"Serve the external JWT signer API on a unix domain socket"`
	Issue  IssueCmd  `cmd:"" help:"Issue a token with the configured keys"`
	Verify VerifyCmd `cmd:"" help:"Verify a token and print its claims"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	cliCtx := kong.Parse(&cli,
		kong.Name("token-signer"),
		kong.Description("Issue and verify signed tokens."),
		kong.UsageOnError(),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cli.LogLevel)); err != nil {
		cliCtx.FatalIfErrorf(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cliCtx.BindTo(ctx, (*context.Context)(nil))
	cliCtx.Bind(logger, &cli.Globals)

	if err := cliCtx.Run(); err != nil {
		logger.Error("failed to run CLI", slog.Any("error", err))
		os.Exit(1)
	}
}
