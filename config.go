package goEventHub

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once by Builder.Build; later edits to a Config value do
// not reach a built Store.
type Config struct {
	Backend       BackendConfig
	Maps          MapsConfig
	PasswordReset PasswordResetConfig
	Token         TokenConfig
	Feed          FeedConfig
	Throttle      ThrottleConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig locates the remote REST backend.
//
// Timeout of zero leaves requests bounded only by the caller's context.
type BackendConfig struct {
	BaseURL   string
	APIPrefix string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
MAPS CONFIG
====================================
*/

// MapsConfig is handed to the location picker through Store.MapSettings.
type MapsConfig struct {
	APIKey      string
	Libraries   []string
	DefaultZoom int
}

// PasswordResetConfig configures the recovery e-mail.
// FrontendURL is the page the recovery e-mail links back to.
type PasswordResetConfig struct {
	FrontendURL string
}

// TokenConfig names the slot holding the access token.
type TokenConfig struct {
	StorageKey  string
	RedisPrefix string
}

// FeedConfig maps each feed tab to its backend path (relative to APIPrefix).
type FeedConfig struct {
	DefaultTab FeedTab
	ForYouPath string
	JoinedPath string
	MinePath   string
}

// ThrottleConfig caps password recovery requests per e-mail address in a
// fixed window. It needs a Redis client (Builder.WithRedis).
type ThrottleConfig struct {
	Enabled             bool
	MaxRecoveryRequests int
	RecoveryWindow      time.Duration
}

// AuditConfig sizes the action event buffer. With DropIfFull a full buffer
// drops events instead of blocking the action.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a Config pointing at a local backend.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:   "http://localhost:3001",
			APIPrefix: "/api",
			Timeout:   0,
			UserAgent: "goEventHub",
		},
		Maps: MapsConfig{
			Libraries:   []string{"places"},
			DefaultZoom: 13,
		},
		PasswordReset: PasswordResetConfig{
			FrontendURL: "http://localhost:3000/password-reset",
		},
		Token: TokenConfig{
			StorageKey:  "token",
			RedisPrefix: "eh",
		},
		Feed: FeedConfig{
			DefaultTab: FeedForYou,
			ForYouPath: "/events",
			JoinedPath: "/events/joined",
			MinePath:   "/events/mine",
		},
		Throttle: ThrottleConfig{
			Enabled:             false,
			MaxRecoveryRequests: 3,
			RecoveryWindow:      15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Maps.Libraries = append([]string(nil), cfg.Maps.Libraries...)
	return out
}

/*
====================================
ENVIRONMENT
====================================
*/

// LoadConfigFromEnv overlays environment variables on DefaultConfig.
//
// Recognized variables: EVENTHUB_BACKEND_URL (falls back to BACKEND_URL),
// EVENTHUB_API_PREFIX, EVENTHUB_BACKEND_TIMEOUT, GOOGLE_API,
// EVENTHUB_RESET_FRONTEND_URL, EVENTHUB_TOKEN_KEY, EVENTHUB_REDIS_PREFIX,
// EVENTHUB_FEED_TAB, EVENTHUB_RECOVERY_THROTTLE, EVENTHUB_METRICS,
// EVENTHUB_AUDIT.
func LoadConfigFromEnv() Config {
	cfg := defaultConfig()

	cfg.Backend.BaseURL = envString("EVENTHUB_BACKEND_URL", envString("BACKEND_URL", cfg.Backend.BaseURL))
	cfg.Backend.APIPrefix = envString("EVENTHUB_API_PREFIX", cfg.Backend.APIPrefix)
	cfg.Backend.Timeout = envDuration("EVENTHUB_BACKEND_TIMEOUT", cfg.Backend.Timeout)
	cfg.Maps.APIKey = envString("GOOGLE_API", cfg.Maps.APIKey)
	cfg.PasswordReset.FrontendURL = envString("EVENTHUB_RESET_FRONTEND_URL", cfg.PasswordReset.FrontendURL)
	cfg.Token.StorageKey = envString("EVENTHUB_TOKEN_KEY", cfg.Token.StorageKey)
	cfg.Token.RedisPrefix = envString("EVENTHUB_REDIS_PREFIX", cfg.Token.RedisPrefix)
	if tab, err := ParseFeedTab(envString("EVENTHUB_FEED_TAB", string(cfg.Feed.DefaultTab))); err == nil {
		cfg.Feed.DefaultTab = tab
	}
	cfg.Throttle.Enabled = envBool("EVENTHUB_RECOVERY_THROTTLE", cfg.Throttle.Enabled)
	cfg.Metrics.Enabled = envBool("EVENTHUB_METRICS", cfg.Metrics.Enabled)
	cfg.Audit.Enabled = envBool("EVENTHUB_AUDIT", cfg.Audit.Enabled)

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

/*
====================================
VALIDATION
====================================
*/

// Validate returns the first configuration problem found, or nil.
func (c *Config) Validate() error {
	// Backend
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("Backend BaseURL must be set")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" {
		return errors.New("Backend BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Backend BaseURL scheme must be http or https")
	}
	if c.Backend.APIPrefix != "" && !strings.HasPrefix(c.Backend.APIPrefix, "/") {
		return errors.New("Backend APIPrefix must start with /")
	}
	if c.Backend.Timeout < 0 {
		return errors.New("Backend Timeout must be >= 0")
	}

	// Password reset
	if strings.TrimSpace(c.PasswordReset.FrontendURL) == "" {
		return errors.New("PasswordReset FrontendURL must be set")
	}
	if fu, err := url.Parse(c.PasswordReset.FrontendURL); err != nil || fu.Host == "" {
		return errors.New("PasswordReset FrontendURL must be an absolute URL")
	}

	// Token slot
	if strings.TrimSpace(c.Token.StorageKey) == "" {
		return errors.New("Token StorageKey must be set")
	}

	// Maps
	if c.Maps.DefaultZoom < 0 || c.Maps.DefaultZoom > 21 {
		return errors.New("Maps DefaultZoom must be within 0..21")
	}

	// Feed
	if !c.Feed.DefaultTab.Valid() {
		return errors.New("Feed DefaultTab must be one of for-you, Joined, my-events")
	}
	for _, p := range []string{c.Feed.ForYouPath, c.Feed.JoinedPath, c.Feed.MinePath} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Feed paths must start with /")
		}
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxRecoveryRequests <= 0 {
			return errors.New("Throttle MaxRecoveryRequests must be > 0 when enabled")
		}
		if c.Throttle.RecoveryWindow <= 0 {
			return errors.New("Throttle RecoveryWindow must be > 0 when enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func (c *Config) feedPath(tab FeedTab) (string, error) {
	switch tab {
	case FeedForYou:
		return c.Feed.ForYouPath, nil
	case FeedJoined:
		return c.Feed.JoinedPath, nil
	case FeedMine:
		return c.Feed.MinePath, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFeedTab, tab)
	}
}
