package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	v1 "k8s.io/externaljwt/apis/v1"
	"k8s.io/externaljwt/apis/v1alpha1"

	"github.com/zarvd/token-signer/internal/server"
	"github.com/zarvd/token-signer/internal/token"
)

type ServeCmd struct {
	UnixDomainSocket string `arg:"" required:"" help:"Unix domain socket to listen on"`
}

func (cmd *ServeCmd) Run(ctx context.Context, logger *slog.Logger, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	keys, err := newKeySource(logger, cfg)
	if err != nil {
		return err
	}
	defer keys.Close()

	factory := token.NewFactory(keys, token.WithLogger(logger))
	serverCfg := server.Config{MaxTokenExpiration: cfg.MaxTokenExpiration}
	v1Server := server.NewV1Server(logger, factory, keys, serverCfg)
	v1alpha1Server := server.NewV1Alpha1Server(logger, factory, keys, serverCfg)

	grpcServer := grpc.NewServer()
	v1.RegisterExternalJWTSignerServer(grpcServer, v1Server)
	v1alpha1.RegisterExternalJWTSignerServer(grpcServer, v1alpha1Server)

	listener, err := net.Listen("unix", cmd.UnixDomainSocket)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer listener.Close()

	go func() {
		logger.Info("serving on", slog.String("address", listener.Addr().String()))
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error("failed to serve", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	grpcServer.GracefulStop()
	logger.Info("shutting down")
	return nil
}
