package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/recharge-service/internal/adapters/ports"
	"github.com/kevin07696/recharge-service/internal/config"
	"go.uber.org/zap"
)

// Credential sources accepted by CREDENTIAL_SOURCE
const (
	SourceEnv   = "env"
	SourceVault = "vault"
	SourceAWS   = "aws"
	SourceFile  = "file"
)

// NewSecretManager builds the backend named by cfg.Source. The env source
// needs no backend and returns nil.
func NewSecretManager(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Source {
	case "", SourceEnv:
		return nil, nil
	case SourceVault:
		vc := DefaultVaultConfig(cfg.VaultAddress)
		vc.Token = cfg.VaultToken
		if cfg.VaultMount != "" {
			vc.MountPath = cfg.VaultMount
		}
		return NewVaultAdapter(ctx, vc, logger)
	case SourceAWS:
		ac := DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		ac.Endpoint = cfg.AWSEndpoint
		return NewAWSSecretsManagerAdapter(ctx, ac, logger)
	case SourceFile:
		logger.Warn("Using file secret manager - NOT for production use!",
			zap.String("base_path", cfg.LocalBasePath),
		)
		return NewLocalSecretManager(cfg.LocalBasePath, logger), nil
	default:
		return nil, fmt.Errorf("unknown CREDENTIAL_SOURCE %q", cfg.Source)
	}
}

// LoadGatewayCredentials overwrites the EV and IRIS username/password pairs
// with the values stored at the configured secret paths. A nil manager
// leaves the environment values in place.
func LoadGatewayCredentials(ctx context.Context, sm ports.SecretManagerAdapter, cfg *config.Config) error {
	if sm == nil {
		return nil
	}
	if err := fill(ctx, sm, cfg.Secrets.EVPath, &cfg.EV); err != nil {
		return fmt.Errorf("EV credentials: %w", err)
	}
	if err := fill(ctx, sm, cfg.Secrets.IRISPath, &cfg.IRIS); err != nil {
		return fmt.Errorf("IRIS credentials: %w", err)
	}
	return nil
}

func fill(ctx context.Context, sm ports.SecretManagerAdapter, path string, gw *config.GatewayConfig) error {
	secret, err := sm.GetSecret(ctx, path)
	if err != nil {
		return err
	}

	username := secret.Get("username")
	if username == "" {
		username = secret.Get("login_id")
	}
	password := secret.Get("password")
	if username == "" || password == "" {
		return fmt.Errorf("secret %s must hold username and password", path)
	}

	gw.Username = username
	gw.Password = password
	return nil
}
