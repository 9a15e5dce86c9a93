package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	EV       GatewayConfig
	IRIS     GatewayConfig
	Recharge RechargeConfig
	Trace    TraceConfig
	Tracing  TracingConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	MetricsPort     int
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
	// BehindTLS enables HSTS; set when a TLS-terminating proxy fronts the service
	BehindTLS bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// RedisConfig holds the balance cache configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// GatewayConfig holds one settlement gateway's endpoint and credentials
type GatewayConfig struct {
	BaseURL            string
	Username           string
	Password           string
	Channel            string
	GatewayCode        string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// SuccessCode is the status code that alone denotes settlement success
	SuccessCode string
	// ReconcileBalance enables the balance snapshot step after a success
	ReconcileBalance bool
}

// MessageRule rewrites a raw provider phrase into a user-safe phrase
type MessageRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// SplitRule sets how many space-separated fields a display name is split
// into when it contains Keyword. The offer text is always the first field.
type SplitRule struct {
	Keyword string `json:"keyword"`
	Fields  int    `json:"fields"`
}

// RechargeConfig holds the message, parsing and bookkeeping rules
type RechargeConfig struct {
	NoResponseMessage     string
	GenericFailureMessage string
	NoOfferMessage        string

	// DiagnosticTruncateLength caps diagnostic text stored in place of data
	DiagnosticTruncateLength int
	// LogMessageLength caps provider messages written to the transaction log
	LogMessageLength int

	// RedactMinDigits masks digit runs of at least this length
	RedactMinDigits int
	// FullRedaction replaces unmatched provider text with GenericFailureMessage
	FullRedaction bool
	MessageRules  []MessageRule

	SplitRules         []SplitRule
	DefaultSplitFields int
	// AmountTrimSuffixes are stripped from the end of an offer string
	AmountTrimSuffixes []string
	PromoKeyword       string

	CountryPrefix      string
	BookkeepingTimeout time.Duration
}

// TraceConfig holds the out-of-band diagnostic store configuration
type TraceConfig struct {
	Path string
	// Retention is how long attempt traces are kept before pruning
	Retention     time.Duration
	PruneInterval time.Duration
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Environment string
}

// SecretsConfig selects where gateway credentials come from
type SecretsConfig struct {
	Source        string // env, vault, aws, file
	VaultAddress  string
	VaultToken    string
	VaultMount    string
	AWSRegion     string
	AWSEndpoint   string
	LocalBasePath string
	EVPath        string
	IRISPath      string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// DefaultMessageRules is the ordered rewrite table for provider failure text
func DefaultMessageRules() []MessageRule {
	return []MessageRule{
		{Pattern: `(?i)insufficient\s+(balance|fund)`, Replacement: "Your account does not have enough credit for this recharge."},
		{Pattern: `(?i)(invalid|wrong|incorrect)\s+(pin|password)`, Replacement: "The PIN you entered is not correct."},
		{Pattern: `(?i)(invalid|unknown)\s+(msisdn|subscriber|mobile)`, Replacement: "The subscriber number is not valid."},
		{Pattern: `(?i)(time\s*out|timed\s+out)`, Replacement: "The operator did not respond in time. Please try again later."},
		{Pattern: `(?i)duplicate`, Replacement: "A similar request was processed recently. Please wait before retrying."},
		{Pattern: `(?i)(barred|blocked|suspended)`, Replacement: "This number cannot be recharged right now."},
		{Pattern: `(?i)amount.*(not allowed|out of range|exceed)`, Replacement: "The recharge amount is outside the permitted range."},
	}
}

// DefaultRechargeConfig returns the rules observed on the EV and IRIS gateways
func DefaultRechargeConfig() RechargeConfig {
	return RechargeConfig{
		NoResponseMessage:        "No response from the operator. Please try again later.",
		GenericFailureMessage:    "Recharge could not be completed. Please try again later.",
		NoOfferMessage:           "No offer available right now.",
		DiagnosticTruncateLength: 50,
		LogMessageLength:         1000,
		RedactMinDigits:          4,
		MessageRules:             DefaultMessageRules(),
		SplitRules:               []SplitRule{{Keyword: "default", Fields: 2}},
		DefaultSplitFields:       3,
		AmountTrimSuffixes:       []string{"10"},
		PromoKeyword:             "pop up",
		CountryPrefix:            "88",
		BookkeepingTimeout:       10 * time.Second,
	}
}

// Load reads .env files (when present) and then the environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	recharge := DefaultRechargeConfig()
	recharge.NoResponseMessage = getEnv("RECHARGE_NO_RESPONSE_MESSAGE", recharge.NoResponseMessage)
	recharge.GenericFailureMessage = getEnv("RECHARGE_GENERIC_FAILURE_MESSAGE", recharge.GenericFailureMessage)
	recharge.NoOfferMessage = getEnv("RECHARGE_NO_OFFER_MESSAGE", recharge.NoOfferMessage)
	recharge.DiagnosticTruncateLength = getEnvAsInt("RECHARGE_DIAGNOSTIC_LENGTH", recharge.DiagnosticTruncateLength)
	recharge.LogMessageLength = getEnvAsInt("RECHARGE_LOG_MESSAGE_LENGTH", recharge.LogMessageLength)
	recharge.RedactMinDigits = getEnvAsInt("RECHARGE_REDACT_MIN_DIGITS", recharge.RedactMinDigits)
	recharge.FullRedaction = getEnvAsBool("RECHARGE_FULL_REDACTION", recharge.FullRedaction)
	recharge.DefaultSplitFields = getEnvAsInt("OFFER_DEFAULT_SPLIT_FIELDS", recharge.DefaultSplitFields)
	recharge.AmountTrimSuffixes = getEnvAsSlice("OFFER_TRIM_SUFFIXES", recharge.AmountTrimSuffixes)
	recharge.PromoKeyword = getEnv("OFFER_PROMO_KEYWORD", recharge.PromoKeyword)
	recharge.CountryPrefix = getEnv("RECHARGE_COUNTRY_PREFIX", recharge.CountryPrefix)
	recharge.BookkeepingTimeout = getEnvAsDuration("RECHARGE_BOOKKEEPING_TIMEOUT", recharge.BookkeepingTimeout)

	if raw := os.Getenv("RECHARGE_MESSAGE_RULES"); raw != "" {
		var rules []MessageRule
		if err := json.Unmarshal([]byte(raw), &rules); err != nil {
			return nil, fmt.Errorf("RECHARGE_MESSAGE_RULES: %w", err)
		}
		recharge.MessageRules = rules
	}
	if raw := os.Getenv("OFFER_SPLIT_RULES"); raw != "" {
		rules, err := parseSplitRules(raw)
		if err != nil {
			return nil, fmt.Errorf("OFFER_SPLIT_RULES: %w", err)
		}
		recharge.SplitRules = rules
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			BehindTLS:       getEnvAsBool("SERVER_BEHIND_TLS", false),
		},
		Database: LoadDatabaseFromEnv(),
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
			TTL:      getEnvAsDuration("REDIS_BALANCE_TTL", 15*time.Minute),
		},
		EV: GatewayConfig{
			BaseURL:            getEnv("EV_BASE_URL", ""),
			Username:           getEnv("EV_USERNAME", ""),
			Password:           getEnv("EV_PASSWORD", ""),
			Timeout:            getEnvAsDuration("EV_TIMEOUT", 30*time.Second),
			InsecureSkipVerify: getEnvAsBool("EV_INSECURE_SKIP_VERIFY", false),
			SuccessCode:        getEnv("EV_SUCCESS_CODE", "200"),
			ReconcileBalance:   getEnvAsBool("EV_RECONCILE_BALANCE", true),
		},
		IRIS: GatewayConfig{
			BaseURL:            getEnv("IRIS_BASE_URL", ""),
			Username:           getEnv("IRIS_USERNAME", ""),
			Password:           getEnv("IRIS_PASSWORD", ""),
			Channel:            getEnv("IRIS_CHANNEL", "RETAILAPP"),
			GatewayCode:        getEnv("IRIS_GATEWAY_CODE", "RETAILAPP"),
			Timeout:            getEnvAsDuration("IRIS_TIMEOUT", 30*time.Second),
			InsecureSkipVerify: getEnvAsBool("IRIS_INSECURE_SKIP_VERIFY", false),
			SuccessCode:        getEnv("IRIS_SUCCESS_CODE", "0"),
			ReconcileBalance:   getEnvAsBool("IRIS_RECONCILE_BALANCE", false),
		},
		Recharge: recharge,
		Trace: TraceConfig{
			Path:          getEnv("TRACE_DB_PATH", "recharge-trace.db"),
			Retention:     getEnvAsDuration("TRACE_RETENTION", 30*24*time.Hour),
			PruneInterval: getEnvAsDuration("TRACE_PRUNE_INTERVAL", time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			ServiceName: getEnv("SERVICE_NAME", "recharge-service"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Secrets: SecretsConfig{
			Source:        getEnv("CREDENTIAL_SOURCE", "env"),
			VaultAddress:  getEnv("VAULT_ADDR", ""),
			VaultToken:    getEnv("VAULT_TOKEN", ""),
			VaultMount:    getEnv("VAULT_MOUNT", "secret"),
			AWSRegion:     getEnv("AWS_REGION", "ap-southeast-1"),
			AWSEndpoint:   getEnv("AWS_SECRETS_ENDPOINT", ""),
			LocalBasePath: getEnv("SECRETS_BASE_PATH", "./secrets"),
			EVPath:        getEnv("EV_CREDENTIALS_PATH", "recharge-service/gateways/ev"),
			IRISPath:      getEnv("IRIS_CREDENTIALS_PATH", "recharge-service/gateways/iris"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabaseFromEnv reads only the DB_* variables
func LoadDatabaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Database: getEnv("DB_NAME", "recharge_service"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
	}
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.EV.BaseURL == "" {
		return fmt.Errorf("EV_BASE_URL is required")
	}
	if c.IRIS.BaseURL == "" {
		return fmt.Errorf("IRIS_BASE_URL is required")
	}
	if c.Secrets.Source == "env" {
		if c.IRIS.Username == "" || c.IRIS.Password == "" {
			return fmt.Errorf("IRIS_USERNAME and IRIS_PASSWORD are required when CREDENTIAL_SOURCE=env")
		}
	}
	if c.Recharge.DiagnosticTruncateLength <= 0 {
		return fmt.Errorf("RECHARGE_DIAGNOSTIC_LENGTH must be positive")
	}
	if c.Recharge.DefaultSplitFields < 1 {
		return fmt.Errorf("OFFER_DEFAULT_SPLIT_FIELDS must be at least 1")
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// parseSplitRules parses "default:2,combo:3"
func parseSplitRules(raw string) ([]SplitRule, error) {
	var rules []SplitRule
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kw, n, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("rule %q: expected keyword:fields", part)
		}
		fields, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || fields < 1 {
			return nil, fmt.Errorf("rule %q: fields must be a positive integer", part)
		}
		rules = append(rules, SplitRule{Keyword: strings.ToLower(strings.TrimSpace(kw)), Fields: fields})
	}
	return rules, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
