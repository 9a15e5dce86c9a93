package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/kevin07696/recharge-service/internal/adapters/secrets"
	"github.com/kevin07696/recharge-service/internal/config"
)

// loadCredentials fills the EV and IRIS logins from the configured secret
// source. With CREDENTIAL_SOURCE=env the environment values are kept as is.
func loadCredentials(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	sm, err := secrets.NewSecretManager(ctx, cfg.Secrets, logger)
	if err != nil {
		return err
	}
	if sm == nil {
		logger.Info("Using gateway credentials from environment")
		return nil
	}

	if err := secrets.LoadGatewayCredentials(ctx, sm, cfg); err != nil {
		return err
	}
	logger.Info("Gateway credentials loaded",
		zap.String("source", cfg.Secrets.Source),
		zap.String("ev_path", cfg.Secrets.EVPath),
		zap.String("iris_path", cfg.Secrets.IRISPath),
	)
	return nil
}
