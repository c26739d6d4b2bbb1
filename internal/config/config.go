// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"inkpost/internal/commenttree"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoMigrate            bool   `mapstructure:"DB_AUTO_MIGRATE"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	VisitorCookieName            string `mapstructure:"VISITOR_COOKIE_NAME"`
	VisitorCookieMaxAgeDays      int    `mapstructure:"VISITOR_COOKIE_MAX_AGE_DAYS"`
	VisitorCookieSecure          bool   `mapstructure:"VISITOR_COOKIE_SECURE"`
	CommentMaxLength             int    `mapstructure:"COMMENT_MAX_LENGTH"`
	CommentOrphanPolicy          string `mapstructure:"COMMENT_ORPHAN_POLICY"`
	CommentRateLimitPerMinute    int    `mapstructure:"COMMENT_RATE_LIMIT_PER_MINUTE"`
	CommentTreeCacheSeconds      int    `mapstructure:"COMMENT_TREE_CACHE_SECONDS"`
	ModerationExtraTermsEN       string `mapstructure:"MODERATION_EXTRA_TERMS_EN"`
	ModerationExtraTermsTR       string `mapstructure:"MODERATION_EXTRA_TERMS_TR"`
	GeoIPDBPath                  string `mapstructure:"GEOIP_DB_PATH"`
	LikeReconcileIntervalMinutes int    `mapstructure:"LIKE_RECONCILE_INTERVAL_MINUTES"`

	DevBootstrapRoot bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername  string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail     string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword  string `mapstructure:"DEV_ROOT_PASSWORD"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; environment variables alone are enough.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("JWT_AUDIENCE", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "inkpost")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("VISITOR_COOKIE_NAME", "visitorId")
	viper.SetDefault("VISITOR_COOKIE_MAX_AGE_DAYS", 365)
	viper.SetDefault("VISITOR_COOKIE_SECURE", false)
	viper.SetDefault("COMMENT_MAX_LENGTH", 10000)
	viper.SetDefault("COMMENT_ORPHAN_POLICY", string(commenttree.OrphanPromote))
	viper.SetDefault("COMMENT_RATE_LIMIT_PER_MINUTE", 1)
	viper.SetDefault("COMMENT_TREE_CACHE_SECONDS", 60)
	viper.SetDefault("MODERATION_EXTRA_TERMS_EN", "")
	viper.SetDefault("MODERATION_EXTRA_TERMS_TR", "")
	viper.SetDefault("GEOIP_DB_PATH", "")
	viper.SetDefault("LIKE_RECONCILE_INTERVAL_MINUTES", 60)
	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "inkpost_root")
	viper.SetDefault("DEV_ROOT_EMAIL", "root@inkpost.local")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.CommentOrphanPolicy = strings.ToLower(strings.TrimSpace(c.CommentOrphanPolicy))
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// OrphanPolicy returns the parsed comment orphan policy.
func (c *Config) OrphanPolicy() commenttree.OrphanPolicy {
	p, err := commenttree.ParseOrphanPolicy(c.CommentOrphanPolicy)
	if err != nil {
		return commenttree.OrphanPromote
	}
	return p
}

// VisitorCookieMaxAge is the lifetime of a freshly minted visitor cookie.
func (c *Config) VisitorCookieMaxAge() time.Duration {
	return time.Duration(c.VisitorCookieMaxAgeDays) * 24 * time.Hour
}

// CommentTreeCacheTTL is how long a built comment forest stays cached.
func (c *Config) CommentTreeCacheTTL() time.Duration {
	return time.Duration(c.CommentTreeCacheSeconds) * time.Second
}

// LikeReconcileInterval is the period of the background counter repair; zero disables it.
func (c *Config) LikeReconcileInterval() time.Duration {
	return time.Duration(c.LikeReconcileIntervalMinutes) * time.Minute
}

// ModerationExtraTerms returns configured extra moderation terms by locale.
func (c *Config) ModerationExtraTerms() map[string][]string {
	return map[string][]string{
		"en": splitList(c.ModerationExtraTermsEN),
		"tr": splitList(c.ModerationExtraTermsTR),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := commenttree.ParseOrphanPolicy(c.CommentOrphanPolicy); err != nil {
		return fmt.Errorf("COMMENT_ORPHAN_POLICY: %w", err)
	}
	if c.VisitorCookieMaxAgeDays <= 0 {
		return errors.New("VISITOR_COOKIE_MAX_AGE_DAYS must be positive")
	}
	if c.CommentMaxLength <= 0 {
		return errors.New("COMMENT_MAX_LENGTH must be positive")
	}
	if c.CommentRateLimitPerMinute < 0 {
		return errors.New("COMMENT_RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.LikeReconcileIntervalMinutes < 0 {
		return errors.New("LIKE_RECONCILE_INTERVAL_MINUTES must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.DevBootstrapRoot {
			return errors.New("DEV_BOOTSTRAP_ROOT must be disabled in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
		if !c.VisitorCookieSecure {
			log.Println("WARNING: VISITOR_COOKIE_SECURE is off in production.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
