package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/recharge-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig selects the Vault server and KV mount holding gateway logins
type VaultConfig struct {
	Address string

	// AuthMethod is "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string
	Namespace  string

	MountPath string
	KVVersion string // v1 or v2

	CacheTTL      time.Duration
	EnableCache   bool
	TLSSkipVerify bool
}

// DefaultVaultConfig uses token auth against a KV v2 mount named "secret"
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		AuthMethod:  "token",
		MountPath:   "secret",
		KVVersion:   "v2",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

// vaultAdapter implements ports.SecretManagerAdapter
type vaultAdapter struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter creates a new HashiCorp Vault adapter
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault secret source ready",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount", cfg.MountPath),
	)

	return &vaultAdapter{
		client: client,
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "", "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

// GetSecret reads every string field stored at path
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		return cached, nil
	}

	start := time.Now()
	raw, err := a.client.Logical().ReadWithContext(ctx, a.kvPath(path))
	if err != nil {
		a.logger.Error("Vault read failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("read %s from Vault: %w", path, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	result, err := a.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", path, err)
	}

	a.logger.Info("Gateway secret read from Vault",
		zap.String("path", path),
		zap.String("version", result.Version),
		zap.Duration("elapsed", time.Since(start)),
	)
	a.cache.set(path, result)
	return result, nil
}

func (a *vaultAdapter) kvPath(path string) string {
	if a.config.KVVersion == "v1" {
		return a.config.MountPath + "/" + path
	}
	return a.config.MountPath + "/data/" + path
}

// decode unwraps the KV v2 envelope and keeps string values only
func (a *vaultAdapter) decode(raw *vault.Secret) (*ports.Secret, error) {
	result := &ports.Secret{Version: "1"}

	data := raw.Data
	if a.config.KVVersion != "v1" {
		inner, ok := raw.Data["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected KV v2 response shape")
		}
		data = inner
		if md, ok := raw.Data["metadata"].(map[string]interface{}); ok {
			if v, ok := md["version"].(json.Number); ok {
				result.Version = v.String()
			}
			result.CreatedAt, _ = md["created_time"].(string)
		}
	}

	result.Fields = make(map[string]string, len(data))
	for k, v := range data {
		if str, ok := v.(string); ok {
			result.Fields[k] = str
		}
	}
	if len(result.Fields) == 0 {
		return nil, fmt.Errorf("no string fields")
	}
	return result, nil
}
