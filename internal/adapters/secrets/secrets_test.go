package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/recharge-service/internal/adapters/ports"
	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeSecret(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestLocalSecretManager(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "gateways/ev", `{"username":"ev-user","password":"ev-pass"}`)
	writeSecret(t, dir, "gateways/plain", "s3cret\n")

	sm := NewLocalSecretManager(dir, zap.NewNop())

	secret, err := sm.GetSecret(context.Background(), "gateways/ev")
	require.NoError(t, err)
	assert.Equal(t, "ev-user", secret.Get("username"))
	assert.Equal(t, "ev-pass", secret.Get("password"))

	plain, err := sm.GetSecret(context.Background(), "gateways/plain")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plain.Get("value"))

	_, err = sm.GetSecret(context.Background(), "gateways/missing")
	assert.ErrorContains(t, err, "secret not found")

	_, err = sm.GetSecret(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

type fakeSecretsManager struct {
	calls  int
	output *secretsmanager.GetSecretValueOutput
	err    error
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	return f.output, f.err
}

func TestAWSAdapter_GetSecretCaches(t *testing.T) {
	created := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	fake := &fakeSecretsManager{output: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"username":"iris-user","password":"iris-pass","port":8443}`),
		VersionId:    aws.String("v-7"),
		CreatedDate:  &created,
	}}
	a := newAWSAdapter(fake, DefaultAWSSecretsManagerConfig("ap-southeast-1"), zap.NewNop())

	for i := 0; i < 2; i++ {
		secret, err := a.GetSecret(context.Background(), "recharge-service/gateways/iris")
		require.NoError(t, err)
		assert.Equal(t, "iris-user", secret.Get("username"))
		assert.Equal(t, "8443", secret.Get("port"))
		assert.Equal(t, "v-7", secret.Version)
		assert.Equal(t, "2024-03-05T14:07:09Z", secret.CreatedAt)
	}
	assert.Equal(t, 1, fake.calls)
}

func TestAWSAdapter_Error(t *testing.T) {
	fake := &fakeSecretsManager{err: errors.New("AccessDenied")}
	a := newAWSAdapter(fake, DefaultAWSSecretsManagerConfig("ap-southeast-1"), zap.NewNop())

	_, err := a.GetSecret(context.Background(), "x")
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestSecretCache_Expires(t *testing.T) {
	c := newSecretCache(true, time.Minute)
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.set("k", &ports.Secret{Version: "1"})
	assert.NotNil(t, c.get("k"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.get("k"))

	disabled := newSecretCache(false, time.Minute)
	disabled.set("k", &ports.Secret{})
	assert.Nil(t, disabled.get("k"))
}

func vaultServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/auth/approle/login":
			_, _ = w.Write([]byte(`{"auth":{"client_token":"approle-token"}}`))
		case "/v1/secret/data/recharge-service/gateways/ev":
			if tok := r.Header.Get("X-Vault-Token"); tok != "root" && tok != "approle-token" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"data":{"username":"ev-user","password":"ev-pass"},"metadata":{"version":3,"created_time":"2024-03-05T14:07:09Z"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
}

func TestVaultAdapter_TokenAuth(t *testing.T) {
	srv := vaultServer(t)
	defer srv.Close()

	cfg := DefaultVaultConfig(srv.URL)
	cfg.Token = "root"
	sm, err := NewVaultAdapter(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	secret, err := sm.GetSecret(context.Background(), "recharge-service/gateways/ev")
	require.NoError(t, err)
	assert.Equal(t, "ev-user", secret.Get("username"))
	assert.Equal(t, "3", secret.Version)
	assert.Equal(t, "2024-03-05T14:07:09Z", secret.CreatedAt)

	_, err = sm.GetSecret(context.Background(), "recharge-service/gateways/unknown")
	assert.Error(t, err)
}

func TestVaultAdapter_AppRole(t *testing.T) {
	srv := vaultServer(t)
	defer srv.Close()

	cfg := DefaultVaultConfig(srv.URL)
	cfg.AuthMethod = "approle"
	cfg.RoleID = "role"
	cfg.SecretID = "secret"
	sm, err := NewVaultAdapter(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	secret, err := sm.GetSecret(context.Background(), "recharge-service/gateways/ev")
	require.NoError(t, err)
	assert.Equal(t, "ev-pass", secret.Get("password"))
}

func TestVaultAdapter_AuthValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  VaultConfig
	}{
		{"missing token", VaultConfig{AuthMethod: "token"}},
		{"missing approle ids", VaultConfig{AuthMethod: "approle"}},
		{"unknown method", VaultConfig{AuthMethod: "kubernetes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Address = "http://127.0.0.1:1"
			_, err := NewVaultAdapter(context.Background(), &cfg, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

type stubManager map[string]*ports.Secret

func (s stubManager) GetSecret(_ context.Context, path string) (*ports.Secret, error) {
	if secret, ok := s[path]; ok {
		return secret, nil
	}
	return nil, errors.New("secret not found: " + path)
}

func TestLoadGatewayCredentials(t *testing.T) {
	cfg := &config.Config{Secrets: config.SecretsConfig{EVPath: "ev", IRISPath: "iris"}}
	cfg.EV.Username = "from-env"

	sm := stubManager{
		"ev":   {Fields: map[string]string{"login_id": "ev-login", "password": "ev-pass"}},
		"iris": {Fields: map[string]string{"username": "iris-user", "password": "iris-pass"}},
	}
	require.NoError(t, LoadGatewayCredentials(context.Background(), sm, cfg))
	assert.Equal(t, "ev-login", cfg.EV.Username)
	assert.Equal(t, "ev-pass", cfg.EV.Password)
	assert.Equal(t, "iris-user", cfg.IRIS.Username)

	incomplete := stubManager{"ev": {Fields: map[string]string{"username": "u"}}}
	assert.ErrorContains(t, LoadGatewayCredentials(context.Background(), incomplete, cfg), "EV credentials")

	assert.NoError(t, LoadGatewayCredentials(context.Background(), nil, cfg))
}

func TestNewSecretManager(t *testing.T) {
	sm, err := NewSecretManager(context.Background(), config.SecretsConfig{Source: SourceEnv}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, sm)

	sm, err = NewSecretManager(context.Background(), config.SecretsConfig{Source: SourceFile, LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, sm)

	_, err = NewSecretManager(context.Background(), config.SecretsConfig{Source: "gcp"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown CREDENTIAL_SOURCE")
}
