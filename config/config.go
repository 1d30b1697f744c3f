// Package config loads the job configuration from the process environment.
//
// The job has no flags: every setting comes from an environment variable and
// is validated once at startup. Load takes the lookup function so callers and
// tests never need to mutate the real environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultDatastoreName = "RNG_MASTER"
	DefaultEntryKey      = "ROBLOX_LIMITEDS"

	DefaultCatalogBaseURL   = "https://catalog.roblox.com"
	DefaultEconomyBaseURL   = "https://economy.roblox.com"
	DefaultOpenCloudBaseURL = "https://apis.roblox.com"
	DefaultUserAgent        = "roblox-rap-updater/1.0"

	MaxPageSize = 120
)

// Adapter names accepted by CATALOG_ADAPTER.
const (
	AdapterHTTP = "http"
	AdapterMock = "mock"
)

// Config is the validated job configuration.
type Config struct {
	// Target
	UniverseID    string
	OpenCloudKey  string
	DatastoreName string
	EntryKey      string

	// Upstreams
	Adapter          string
	CatalogBaseURL   string
	EconomyBaseURL   string
	OpenCloudBaseURL string
	UserAgent        string
	HTTPTimeout      time.Duration

	// Discovery
	PageSize        int
	PageDelay       time.Duration
	CreatorName     string
	CreatorTargetID int64
	VerifyDetails   bool

	// Enrichment
	EnrichWorkers int
	EnrichDelay   time.Duration

	// 429 backoff
	RetryDelay        time.Duration
	RetryMaxAttempts  int
	RespectRetryAfter bool

	// Publish
	DryRun bool

	// Ambient
	LogLevel    string
	JSONLogs    bool
	MetricsAddr string

	// Mirrors (optional)
	PGDSN        string
	PGSchema     string
	PGMaxConns   int
	PGViaBouncer bool
	NATSURL      string
	NATSBucket   string
}

// env reads typed values and remembers every parse failure.
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key, def string) string {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	return v
}

func (e *env) integer(key string, def int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: not an integer: %q", key, v))
		return def
	}
	return i
}

func (e *env) integer64(key string, def int64) int64 {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: not an integer: %q", key, v))
		return def
	}
	return i
}

func (e *env) boolean(key string, def bool) bool {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		e.errs = append(e.errs, fmt.Errorf("%s: not a boolean: %q", key, v))
		return def
	}
}

func (e *env) millis(key string, def int) time.Duration {
	return time.Duration(e.integer(key, def)) * time.Millisecond
}

// Load reads the configuration through getenv and validates it.
func Load(getenv func(string) string) (Config, error) {
	e := &env{get: getenv}

	cfg := Config{
		UniverseID:    e.str("UNIVERSE_ID", ""),
		OpenCloudKey:  e.str("ROBLOX_OPEN_CLOUD_KEY", ""),
		DatastoreName: e.str("DATASTORE_NAME", DefaultDatastoreName),
		EntryKey:      e.str("ENTRY_KEY", DefaultEntryKey),

		Adapter:          strings.ToLower(e.str("CATALOG_ADAPTER", AdapterHTTP)),
		CatalogBaseURL:   strings.TrimRight(e.str("CATALOG_BASE_URL", DefaultCatalogBaseURL), "/"),
		EconomyBaseURL:   strings.TrimRight(e.str("ECONOMY_BASE_URL", DefaultEconomyBaseURL), "/"),
		OpenCloudBaseURL: strings.TrimRight(e.str("OPEN_CLOUD_BASE_URL", DefaultOpenCloudBaseURL), "/"),
		UserAgent:        e.str("HTTP_USER_AGENT", DefaultUserAgent),
		HTTPTimeout:      time.Duration(e.integer("HTTP_TIMEOUT_SEC", 30)) * time.Second,

		PageSize:        e.integer("PAGE_SIZE", MaxPageSize),
		PageDelay:       e.millis("PAGE_DELAY_MS", 250),
		CreatorName:     e.str("CREATOR_NAME", "Roblox"),
		CreatorTargetID: e.integer64("CREATOR_TARGET_ID", 1),
		VerifyDetails:   e.boolean("VERIFY_DETAILS", false),

		EnrichWorkers: e.integer("ENRICH_WORKERS", 24),
		EnrichDelay:   e.millis("ENRICH_DELAY_MS", 100),

		RetryDelay:        e.millis("RETRY_DELAY_MS", 1500),
		RetryMaxAttempts:  e.integer("RETRY_MAX_ATTEMPTS", 0),
		RespectRetryAfter: e.boolean("RESPECT_RETRY_AFTER", false),

		DryRun: e.boolean("DRY_RUN", false),

		LogLevel:    e.str("LOG_LEVEL", "info"),
		JSONLogs:    e.boolean("JSON_LOGS", false),
		MetricsAddr: e.str("METRICS_ADDR", ""),

		PGDSN:        e.str("PG_DSN", ""),
		PGSchema:     e.str("PG_SCHEMA", "public"),
		PGMaxConns:   e.integer("PG_MAX_CONNS", 2),
		PGViaBouncer: e.boolean("PG_VIA_BOUNCER", true),
		NATSURL:      e.str("NATS_URL", ""),
		NATSBucket:   e.str("NATS_BUCKET", ""),
	}
	if cfg.NATSBucket == "" {
		cfg.NATSBucket = cfg.DatastoreName
	}

	errs := append(e.errs, cfg.validate()...)
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return cfg, nil
}

func (c Config) validate() []error {
	var errs []error

	if c.UniverseID == "" || c.OpenCloudKey == "" {
		errs = append(errs, errors.New("missing UNIVERSE_ID or ROBLOX_OPEN_CLOUD_KEY"))
	}
	if c.Adapter != AdapterHTTP && c.Adapter != AdapterMock {
		errs = append(errs, fmt.Errorf("CATALOG_ADAPTER: unknown adapter %q", c.Adapter))
	}
	for key, raw := range map[string]string{
		"CATALOG_BASE_URL":    c.CatalogBaseURL,
		"ECONOMY_BASE_URL":    c.EconomyBaseURL,
		"OPEN_CLOUD_BASE_URL": c.OpenCloudBaseURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: invalid url %q", key, raw))
		}
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("PAGE_SIZE: must be within 1..%d, got %d", MaxPageSize, c.PageSize))
	}
	if c.EnrichWorkers < 1 {
		errs = append(errs, fmt.Errorf("ENRICH_WORKERS: must be positive, got %d", c.EnrichWorkers))
	}
	if c.HTTPTimeout < 0 || c.PageDelay < 0 || c.EnrichDelay < 0 || c.RetryDelay < 0 {
		errs = append(errs, errors.New("timeouts and delays must not be negative"))
	}
	if c.RetryMaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS: must not be negative, got %d", c.RetryMaxAttempts))
	}
	if c.PGDSN != "" && c.PGMaxConns < 1 {
		errs = append(errs, fmt.Errorf("PG_MAX_CONNS: must be positive, got %d", c.PGMaxConns))
	}

	return errs
}
