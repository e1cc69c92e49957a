package server

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/types/known/timestamppb"
	v1alpha1 "k8s.io/externaljwt/apis/v1alpha1"
)

// V1Alpha1Server serves the same backend to API servers that still speak
// v1alpha1.
type V1Alpha1Server struct {
	v1alpha1.UnimplementedExternalJWTSignerServer

	backend
}

func NewV1Alpha1Server(logger *slog.Logger, signer Signer, keys KeySet, cfg Config) *V1Alpha1Server {
	return &V1Alpha1Server{
		backend: backend{
			logger: logger,
			signer: signer,
			keys:   keys,
			cfg:    cfg,
		},
	}
}

func (svr *V1Alpha1Server) Sign(ctx context.Context, req *v1alpha1.SignJWTRequest) (*v1alpha1.SignJWTResponse, error) {
	logger := svr.logger.With(slog.String("method", "Sign"), slog.String("api", "v1alpha1"))

	signed, err := svr.sign(ctx, logger, req.Claims)
	if err != nil {
		return nil, err
	}

	return &v1alpha1.SignJWTResponse{
		Header:    signed.Header,
		Signature: signed.Signature,
	}, nil
}

func (svr *V1Alpha1Server) FetchKeys(ctx context.Context, req *v1alpha1.FetchKeysRequest) (*v1alpha1.FetchKeysResponse, error) {
	logger := svr.logger.With(slog.String("method", "FetchKeys"), slog.String("api", "v1alpha1"))

	publicKeys := svr.publicKeys(logger)

	keys := make([]*v1alpha1.Key, 0, len(publicKeys))
	for _, publicKey := range publicKeys {
		keys = append(keys, &v1alpha1.Key{
			KeyId:                    publicKey.KeyID,
			Key:                      publicKey.Key,
			ExcludeFromOidcDiscovery: false,
		})
	}

	return &v1alpha1.FetchKeysResponse{
		Keys:               keys,
		DataTimestamp:      timestamppb.New(svr.keys.UpdatedAt()),
		RefreshHintSeconds: int64(svr.cfg.refreshHint().Seconds()),
	}, nil
}

func (svr *V1Alpha1Server) Metadata(ctx context.Context, req *v1alpha1.MetadataRequest) (*v1alpha1.MetadataResponse, error) {
	logger := svr.logger.With(slog.String("method", "Metadata"), slog.String("api", "v1alpha1"))

	rv := &v1alpha1.MetadataResponse{
		MaxTokenExpirationSeconds: int64(svr.cfg.MaxTokenExpiration.Seconds()),
	}
	logger.Info("fetched metadata", slog.Int64("max-token-expiration-seconds", rv.MaxTokenExpirationSeconds))

	return rv, nil
}
