package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	// Fields holds the key/value pairs stored under the secret path
	Fields    map[string]string
	Version   string
	CreatedAt string
}

// Get returns one field, or "" when absent
func (s *Secret) Get(key string) string {
	if s == nil || s.Fields == nil {
		return ""
	}
	return s.Fields[key]
}

// SecretManagerAdapter reads secrets from a secret management service.
// Backends: HashiCorp Vault, AWS Secrets Manager, local files.
// Path format depends on the backend:
//   - Vault: "recharge-service/gateways/ev" under the configured KV mount
//   - AWS: secret name or full ARN
//   - Local: file path relative to the base directory
type SecretManagerAdapter interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
