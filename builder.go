package goEventHub

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goEventHub/internal/backend"
	"github.com/MrEthical07/goEventHub/internal/rate"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Store. Each Builder builds once.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	tokens     TokenStore
	httpClient *http.Client
	logger     *slog.Logger
	auditSink  AuditSink
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackendURL sets Config.Backend.BaseURL.
func (b *Builder) WithBackendURL(baseURL string) *Builder {
	b.config.Backend.BaseURL = baseURL
	return b
}

// WithHTTPClient replaces the default http.Client used for backend requests.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithRedis keeps the token slot in Redis under Config.Token.RedisPrefix.
// It is ignored when WithTokenStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenStore sets the token slot backend. Defaults to a MemoryTokenStore.
func (b *Builder) WithTokenStore(tokens TokenStore) *Builder {
	b.tokens = tokens
	return b
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where action events go. Defaults to NoOpSink.
// The sink only receives events when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled sets Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records backend round-trip latency; it needs metrics enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// withClock fixes the time stamped on action events, for tests.
func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a Store in its initial
// state. A Builder can only be built once.
func (b *Builder) Build() (*Store, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		APIPrefix:  cfg.Backend.APIPrefix,
		Timeout:    cfg.Backend.Timeout,
		UserAgent:  cfg.Backend.UserAgent,
		HTTPClient: b.httpClient,
	})
	if err != nil {
		return nil, err
	}

	tokens := b.tokens
	if tokens == nil && b.redis != nil {
		tokens = NewRedisTokenStore(b.redis, cfg.Token.RedisPrefix)
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		if b.redis == nil {
			return nil, errors.New("Throttle requires a redis client (WithRedis)")
		}
		limiter = rate.New(b.redis, rate.Config{
			Prefix:      cfg.Token.RedisPrefix,
			MaxAttempts: cfg.Throttle.MaxRecoveryRequests,
			Window:      cfg.Throttle.RecoveryWindow,
		})
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	store := &Store{
		config:  cfg,
		client:  client,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		now:     now,
		state:   newSessionState(cfg.Feed.DefaultTab),
	}

	b.built = true

	return store, nil
}
