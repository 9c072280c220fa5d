package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/teamace/ballshop/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	OAuth         OAuthConfig
	S3            S3Config
	Payments      PaymentsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// AllowedOrigins are the CORS origins permitted to send credentials
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// RedisConfig holds Redis configuration for rate limiting and caching
type RedisConfig struct {
	URL     string
	Enabled bool
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	// JWTSecret is Base64-encoded; it must decode to at least 32 bytes.
	// Validity is checked when the token codec is constructed at startup.
	JWTSecret string
	TokenTTL  time.Duration
	// CookieSecure controls the Secure flag on the jwt cookie. Defaults to
	// true; only disable for plain-HTTP local development.
	CookieSecure bool
	BcryptCost   int
	// LoginRatePerMinute caps login attempts per client IP.
	LoginRatePerMinute int
}

// OAuthProvider holds per-provider OAuth2 client settings
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// OAuthConfig holds federated login configuration
type OAuthConfig struct {
	// RedirectBase is the externally visible base URL of this server,
	// used to build /login/oauth2/code/{provider} callback URLs.
	RedirectBase string
	// PostLoginURL is where the browser is sent after a successful login.
	PostLoginURL string
	// FailureURL is where the browser is sent after a failed login.
	FailureURL string
	// HandshakeTimeout bounds the provider token/userinfo round trips.
	HandshakeTimeout time.Duration

	Kakao  OAuthProvider
	Naver  OAuthProvider
	Google OAuthProvider
}

// S3Config holds object storage configuration for product and review images
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// PaymentsConfig holds payment provider (PortOne) settings
type PaymentsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		OAuth:         loadOAuthConfig(),
		S3:            loadS3Config(),
		Payments:      loadPaymentsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SHOP_HOST", "0.0.0.0"),
		Port:            getEnv("SHOP_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SHOP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SHOP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SHOP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SHOP_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SHOP_HEALTH_PORT", "9090"),
		AllowedOrigins:  getEnvList("SHOP_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:      getEnv("SHOP_POSTGRES_URL", ""),
		MaxConns: getEnvInt("SHOP_POSTGRES_MAX_CONNS", 25),
		MinConns: getEnvInt("SHOP_POSTGRES_MIN_CONNS", 5),
		Timeout:  getEnvDuration("SHOP_POSTGRES_TIMEOUT", 5*time.Second),
	}
}

func loadRedisConfig() RedisConfig {
	url := getEnv("SHOP_REDIS_URL", "")
	return RedisConfig{
		URL:     url,
		Enabled: url != "",
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:          getEnv("SHOP_JWT_SECRET", ""),
		TokenTTL:           getEnvDuration("SHOP_TOKEN_TTL", 24*time.Hour),
		CookieSecure:       getEnvBool("SHOP_COOKIE_SECURE", true),
		BcryptCost:         getEnvInt("SHOP_BCRYPT_COST", 10),
		LoginRatePerMinute: getEnvInt("SHOP_LOGIN_RATE_PER_MINUTE", 10),
	}
}

func loadOAuthConfig() OAuthConfig {
	return OAuthConfig{
		RedirectBase:     getEnv("SHOP_OAUTH_REDIRECT_BASE", "http://localhost:8080"),
		PostLoginURL:     getEnv("SHOP_OAUTH_POST_LOGIN_URL", "http://localhost:5173/"),
		FailureURL:       getEnv("SHOP_OAUTH_FAILURE_URL", "http://localhost:5173/login?error=authentication_failed"),
		HandshakeTimeout: getEnvDuration("SHOP_OAUTH_HANDSHAKE_TIMEOUT", 10*time.Second),
		Kakao: OAuthProvider{
			ClientID:     getEnv("SHOP_OAUTH_KAKAO_CLIENT_ID", ""),
			ClientSecret: getEnv("SHOP_OAUTH_KAKAO_CLIENT_SECRET", ""),
			AuthURL:      getEnv("SHOP_OAUTH_KAKAO_AUTH_URL", "https://kauth.kakao.com/oauth/authorize"),
			TokenURL:     getEnv("SHOP_OAUTH_KAKAO_TOKEN_URL", "https://kauth.kakao.com/oauth/token"),
			UserInfoURL:  getEnv("SHOP_OAUTH_KAKAO_USERINFO_URL", "https://kapi.kakao.com/v2/user/me"),
			Scopes:       getEnvList("SHOP_OAUTH_KAKAO_SCOPES", []string{"account_email", "profile_nickname"}),
		},
		Naver: OAuthProvider{
			ClientID:     getEnv("SHOP_OAUTH_NAVER_CLIENT_ID", ""),
			ClientSecret: getEnv("SHOP_OAUTH_NAVER_CLIENT_SECRET", ""),
			AuthURL:      getEnv("SHOP_OAUTH_NAVER_AUTH_URL", "https://nid.naver.com/oauth2.0/authorize"),
			TokenURL:     getEnv("SHOP_OAUTH_NAVER_TOKEN_URL", "https://nid.naver.com/oauth2.0/token"),
			UserInfoURL:  getEnv("SHOP_OAUTH_NAVER_USERINFO_URL", "https://openapi.naver.com/v1/nid/me"),
			Scopes:       getEnvList("SHOP_OAUTH_NAVER_SCOPES", nil),
		},
		Google: OAuthProvider{
			ClientID:     getEnv("SHOP_OAUTH_GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("SHOP_OAUTH_GOOGLE_CLIENT_SECRET", ""),
			// Endpoints come from OIDC discovery; only the issuer is configurable.
			AuthURL: getEnv("SHOP_OAUTH_GOOGLE_ISSUER", "https://accounts.google.com"),
			Scopes:  getEnvList("SHOP_OAUTH_GOOGLE_SCOPES", []string{"openid", "email", "profile"}),
		},
	}
}

func loadS3Config() S3Config {
	return S3Config{
		Endpoint:     getEnv("SHOP_S3_ENDPOINT", ""),
		Region:       getEnv("SHOP_S3_REGION", "ap-northeast-1"),
		Bucket:       getEnv("SHOP_S3_BUCKET", "ballshop-customer-photos"),
		AccessKey:    getEnv("SHOP_S3_ACCESS_KEY", ""),
		SecretKey:    getEnv("SHOP_S3_SECRET_KEY", ""),
		UsePathStyle: getEnvBool("SHOP_S3_USE_PATH_STYLE", false),
	}
}

func loadPaymentsConfig() PaymentsConfig {
	return PaymentsConfig{
		APIKey:  getEnv("SHOP_PORTONE_API_KEY", ""),
		BaseURL: getEnv("SHOP_PORTONE_BASE_URL", "https://api.portone.io"),
		Timeout: getEnvDuration("SHOP_PORTONE_TIMEOUT", 10*time.Second),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("SHOP_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("SHOP_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("SHOP_POSTGRES_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("SHOP_JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed CORS origin is required")
	}
	return nil
}

// Environment variable helpers

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		// Bare integers are treated as seconds (e.g. SHOP_TOKEN_TTL=86400)
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
