package config

import (
	"testing"
	"time"

	"inkpost/internal/commenttree"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(env string) *Config {
	return &Config{
		Env:                     env,
		Port:                    "8080",
		JWTSecret:               "secure-secret-at-least-32-chars-long",
		DBPassword:              "secure-password",
		DBSSLMode:               "require",
		VisitorCookieMaxAgeDays: 365,
		CommentMaxLength:        10000,
		CommentOrphanPolicy:     "promote",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(tt.env)
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateEngagementSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown orphan policy", func(c *Config) { c.CommentOrphanPolicy = "hide" }},
		{"zero cookie lifetime", func(c *Config) { c.VisitorCookieMaxAgeDays = 0 }},
		{"zero comment length", func(c *Config) { c.CommentMaxLength = 0 }},
		{"negative rate limit", func(c *Config) { c.CommentRateLimitPerMinute = -1 }},
		{"negative reconcile interval", func(c *Config) { c.LikeReconcileIntervalMinutes = -5 }},
		{"default secret in production", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}},
		{"root bootstrap in production", func(c *Config) {
			c.Env = "production"
			c.DevBootstrapRoot = true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig("development")
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	c := validConfig("development")
	c.CommentOrphanPolicy = "drop"
	c.VisitorCookieMaxAgeDays = 2
	c.ModerationExtraTermsEN = " frack, , smeg "

	assert.Equal(t, commenttree.OrphanDrop, c.OrphanPolicy())
	assert.Equal(t, 48*time.Hour, c.VisitorCookieMaxAge())
	assert.Equal(t, []string{"frack", "smeg"}, c.ModerationExtraTerms()["en"])
	assert.Empty(t, c.ModerationExtraTerms()["tr"])
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("COMMENT_ORPHAN_POLICY", " Drop ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, commenttree.OrphanDrop, c.OrphanPolicy())
	assert.Equal(t, "visitorId", c.VisitorCookieName)
	assert.Equal(t, 365, c.VisitorCookieMaxAgeDays)
	assert.Equal(t, 1, c.CommentRateLimitPerMinute)
}
