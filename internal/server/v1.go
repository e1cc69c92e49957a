package server

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/types/known/timestamppb"
	v1 "k8s.io/externaljwt/apis/v1"
)

type V1Server struct {
	v1.UnimplementedExternalJWTSignerServer

	backend
}

func NewV1Server(logger *slog.Logger, signer Signer, keys KeySet, cfg Config) *V1Server {
	return &V1Server{
		backend: backend{
			logger: logger,
			signer: signer,
			keys:   keys,
			cfg:    cfg,
		},
	}
}

func (svr *V1Server) Sign(ctx context.Context, req *v1.SignJWTRequest) (*v1.SignJWTResponse, error) {
	logger := svr.logger.With(slog.String("method", "Sign"), slog.String("api", "v1"))

	signed, err := svr.sign(ctx, logger, req.Claims)
	if err != nil {
		return nil, err
	}

	return &v1.SignJWTResponse{
		Header:    signed.Header,
		Signature: signed.Signature,
	}, nil
}

func (svr *V1Server) FetchKeys(ctx context.Context, req *v1.FetchKeysRequest) (*v1.FetchKeysResponse, error) {
	logger := svr.logger.With(slog.String("method", "FetchKeys"), slog.String("api", "v1"))

	publicKeys := svr.publicKeys(logger)

	keys := make([]*v1.Key, 0, len(publicKeys))
	for _, publicKey := range publicKeys {
		keys = append(keys, &v1.Key{
			KeyId:                    publicKey.KeyID,
			Key:                      publicKey.Key,
			ExcludeFromOidcDiscovery: false,
		})
	}

	return &v1.FetchKeysResponse{
		Keys:               keys,
		DataTimestamp:      timestamppb.New(svr.keys.UpdatedAt()),
		RefreshHintSeconds: int64(svr.cfg.refreshHint().Seconds()),
	}, nil
}

func (svr *V1Server) Metadata(ctx context.Context, req *v1.MetadataRequest) (*v1.MetadataResponse, error) {
	logger := svr.logger.With(slog.String("method", "Metadata"), slog.String("api", "v1"))

	rv := &v1.MetadataResponse{
		MaxTokenExpirationSeconds: int64(svr.cfg.MaxTokenExpiration.Seconds()),
	}
	logger.Info("fetched metadata", slog.Int64("max-token-expiration-seconds", rv.MaxTokenExpirationSeconds))

	return rv, nil
}
