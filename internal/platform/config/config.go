// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Providers Providers
	Session   Session
	Trust     TrustConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	MetricsAddr string
}

// PostgresConfig configures the durable store. An empty URL selects the
// in-memory stores (dev mode).
type PostgresConfig struct {
	URL string
}

// RedisConfig configures the ephemeral artifact store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event pipeline. Empty brokers select the
// in-memory audit store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Providers holds the secrets and endpoints for the three identity proof
// providers.
type Providers struct {
	// BotSecret is the messaging bot's long-term secret used to derive the
	// mini-app payload signing key.
	BotSecret string
	// StateSecret keys the HMAC over OAuth state tokens.
	StateSecret string
	// OAuth client settings for the social provider.
	OAuthClientID     string
	OAuthRedirectURI  string
	OAuthAuthorizeURL string
	OAuthTokenURL     string
	OAuthProfileURL   string
	OAuthRevokeURL    string
}

// TrustConfig overrides the per-category trust score caps. Defaults sum
// to 100.
type TrustConfig struct {
	CapHandshakes int
	CapWallet     int
	CapSocial     int
	CapEvents     int
	CapCommunity  int
}

// Session configures the external session-issuing adapter.
type Session struct {
	JWTSigningKey string
	TokenTTL      time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:        envOr("TRUSTGATE_ADDR", ":8080"),
			MetricsAddr: envOr("TRUSTGATE_METRICS_ADDR", ":9090"),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "trustgate.audit"),
		},
		Providers: Providers{
			BotSecret:         os.Getenv("BOT_SECRET"),
			StateSecret:       os.Getenv("OAUTH_STATE_SECRET"),
			OAuthClientID:     os.Getenv("OAUTH_CLIENT_ID"),
			OAuthRedirectURI:  os.Getenv("OAUTH_REDIRECT_URI"),
			OAuthAuthorizeURL: envOr("OAUTH_AUTHORIZE_URL", "https://x.com/i/oauth2/authorize"),
			OAuthTokenURL:     envOr("OAUTH_TOKEN_URL", "https://api.x.com/2/oauth2/token"),
			OAuthProfileURL:   envOr("OAUTH_PROFILE_URL", "https://api.x.com/2/users/me"),
			OAuthRevokeURL:    envOr("OAUTH_REVOKE_URL", "https://api.x.com/2/oauth2/revoke"),
		},
		Session: Session{
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:      envDuration("SESSION_TOKEN_TTL", 24*time.Hour),
		},
		Trust: TrustConfig{
			CapHandshakes: envInt("TRUST_CAP_HANDSHAKES", 30),
			CapWallet:     envInt("TRUST_CAP_WALLET", 25),
			CapSocial:     envInt("TRUST_CAP_SOCIAL", 20),
			CapEvents:     envInt("TRUST_CAP_EVENTS", 15),
			CapCommunity:  envInt("TRUST_CAP_COMMUNITY", 10),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
