// Package config handles loading and validating application configuration.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. Environment variables use the EDGEGATE_ prefix (e.g.
// EDGEGATE_PORT). The loaded Config is an immutable snapshot: it is
// passed into the dispatcher at startup and never read ad hoc by
// stages, so tests can inject variants deterministically.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Server        Server        `yaml:"server"`
	Security      Security      `yaml:"security"`
	Routes        Routes        `yaml:"routes"`
	Redirects     []Redirect    `yaml:"redirects"`
	Matchers      []string      `yaml:"matchers"`
	Auth          Auth          `yaml:"auth"`
	CORS          CORS          `yaml:"cors"`
	CSRF          CSRF          `yaml:"csrf"`
	CSP           CSP           `yaml:"csp"`
	Tracking      Tracking      `yaml:"tracking"`
	RateLimit     RateLimit     `yaml:"ratelimit"`
	Log           Log           `yaml:"log"`
	Observability Observability `yaml:"observability"`
}

// Server configures the HTTP listener.
type Server struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Security configures host validation and the shared cron/webhook secret.
type Security struct {
	// AllowedHosts optionally restricts requests to these hosts on top
	// of the mandatory non-empty-host rule. Entries are exact names or
	// "*.suffix" wildcards. Empty means any non-empty host passes.
	AllowedHosts []string `yaml:"allowed_hosts"`

	// CronSecretEnv names the environment variable holding the shared
	// cron/webhook bearer secret. The secret value itself never comes
	// from YAML. An unset variable means cron and webhook paths deny
	// every request.
	CronSecretEnv string `yaml:"cron_secret_env"`

	// CronSecret is resolved from CronSecretEnv at load time.
	CronSecret string `yaml:"-"`
}

// Routes holds the path prefixes that drive route classification.
type Routes struct {
	APIPrefixes       []string `yaml:"api_prefixes"`
	WebhookPrefixes   []string `yaml:"webhook_prefixes"`
	CronPrefixes      []string `yaml:"cron_prefixes"`
	AssetPrefixes     []string `yaml:"asset_prefixes"`
	AdminAPIPrefixes  []string `yaml:"admin_api_prefixes"`
	AdminPagePrefixes []string `yaml:"admin_page_prefixes"`
}

// Redirect maps a legacy path to its canonical replacement.
type Redirect struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Prefix bool   `yaml:"prefix"`
}

// Auth configures the external session and admin decision providers.
type Auth struct {
	// EdgeURL and AdminURL point at the platform's session-introspection
	// endpoints. Empty URLs leave the corresponding provider in
	// deny-everything mode.
	EdgeURL  string        `yaml:"edge_url"`
	AdminURL string        `yaml:"admin_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CORS configures the cross-origin policy evaluator.
type CORS struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposeHeaders    []string `yaml:"expose_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// CSRF configures double-submit token validation on API routes.
type CSRF struct {
	Enabled    bool          `yaml:"enabled"`
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	HeaderName string        `yaml:"header_name"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

// CSP configures security-header injection on page responses.
type CSP struct {
	Policy             string            `yaml:"policy"`
	FrameOptions       string            `yaml:"frame_options"`
	ReferrerPolicy     string            `yaml:"referrer_policy"`
	ContentTypeOptions string            `yaml:"content_type_options"`
	CustomHeaders      map[string]string `yaml:"custom_headers"`
}

// Tracking configures the visitor tracking cookie writer.
type Tracking struct {
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

// RateLimit configures the rate-limit counter store.
type RateLimit struct {
	// Backend selects the counter store: "memory" (in-process token
	// bucket) or "redis" (shared sliding window).
	Backend           string        `yaml:"backend"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Window            time.Duration `yaml:"window"`
	Redis             Redis         `yaml:"redis"`
}

// Redis configures the connection to the shared counter store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Log configures structured logging.
type Log struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	CloudFormat string `yaml:"cloud_format"`
}

// Observability configures optional OpenTelemetry tracing.
type Observability struct {
	OTelEnabled     bool   `yaml:"otel_enabled"`
	OTelEndpoint    string `yaml:"otel_endpoint"`
	OTelServiceName string `yaml:"otel_service_name"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: Server{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Security: Security{
			CronSecretEnv: "CRON_SECRET",
		},
		Routes: Routes{
			APIPrefixes:       []string{"/api/"},
			WebhookPrefixes:   []string{"/api/webhooks/"},
			CronPrefixes:      []string{"/api/cron/"},
			AssetPrefixes:     []string{"/static/", "/assets/", "/favicon.ico"},
			AdminAPIPrefixes:  []string{"/api/admin"},
			AdminPagePrefixes: []string{"/admin"},
		},
		Redirects: []Redirect{
			{From: "/org-setup", To: "/admin/setup", Prefix: true},
		},
		Matchers: []string{"/"},
		Auth: Auth{
			Timeout: 5 * time.Second,
		},
		CORS: CORS{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-CSRF-Token"},
			MaxAge:         86400,
		},
		CSRF: CSRF{
			CookieName: "_csrf",
			HeaderName: "X-CSRF-Token",
			TokenTTL:   time.Hour,
		},
		CSP: CSP{
			Policy:             "default-src 'self'; frame-ancestors 'none'",
			FrameOptions:       "DENY",
			ReferrerPolicy:     "strict-origin-when-cross-origin",
			ContentTypeOptions: "nosniff",
		},
		Tracking: Tracking{
			CookieName: "_eg_vid",
			TTL:        365 * 24 * time.Hour,
		},
		RateLimit: RateLimit{
			Backend:           "memory",
			RequestsPerSecond: 10,
			Burst:             20,
			Window:            time.Minute,
			Redis: Redis{
				Prefix: "edgegate:rl:",
			},
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Observability: Observability{
			OTelServiceName: "edgegate",
		},
	}
}

// Load reads configuration from the given YAML file path, then applies
// environment variable overrides and resolves secrets. If path is
// empty, only defaults and environment variables are used.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Security.CronSecretEnv != "" {
		cfg.Security.CronSecret = os.Getenv(cfg.Security.CronSecretEnv)
	}

	if err := validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides reads EDGEGATE_* environment variables and
// overrides the corresponding config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EDGEGATE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("EDGEGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("EDGEGATE_ALLOWED_HOSTS"); v != "" {
		cfg.Security.AllowedHosts = splitAndTrim(v)
	}
	if v := os.Getenv("EDGEGATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("EDGEGATE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("EDGEGATE_RATELIMIT_BACKEND"); v != "" {
		cfg.RateLimit.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("EDGEGATE_RATELIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv("EDGEGATE_RATELIMIT_BURST"); v != "" {
		if burst, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = burst
		}
	}
	if v := os.Getenv("EDGEGATE_REDIS_ADDR"); v != "" {
		cfg.RateLimit.Redis.Addr = v
	}
	if v := os.Getenv("EDGEGATE_CSRF_SECRET"); v != "" {
		cfg.CSRF.Secret = v
	}
	if v := os.Getenv("EDGEGATE_AUTH_EDGE_URL"); v != "" {
		cfg.Auth.EdgeURL = v
	}
	if v := os.Getenv("EDGEGATE_AUTH_ADMIN_URL"); v != "" {
		cfg.Auth.AdminURL = v
	}
	if v := os.Getenv("EDGEGATE_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("EDGEGATE_OTEL_ENABLED"); v != "" {
		cfg.Observability.OTelEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("EDGEGATE_OTEL_ENDPOINT"); v != "" {
		cfg.Observability.OTelEndpoint = v
	}
}

// validate checks that the configuration is internally consistent.
func validate(cfg Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if len(cfg.Matchers) == 0 {
		errs = append(errs, errors.New("matchers must not be empty: the pipeline needs at least one path pattern"))
	}
	if len(cfg.Routes.APIPrefixes) == 0 {
		errs = append(errs, errors.New("routes.api_prefixes must not be empty"))
	}
	for i, r := range cfg.Redirects {
		if r.From == "" || r.To == "" {
			errs = append(errs, fmt.Errorf("redirects[%d]: from and to are required", i))
		}
	}

	switch cfg.RateLimit.Backend {
	case "memory":
	case "redis":
		if cfg.RateLimit.Redis.Addr == "" {
			errs = append(errs, errors.New("ratelimit.redis.addr is required when ratelimit.backend is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("ratelimit.backend must be memory or redis; got %q", cfg.RateLimit.Backend))
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("ratelimit.requests_per_second must be positive"))
	}
	if cfg.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("ratelimit.burst must be at least 1"))
	}

	if cfg.CSRF.Enabled && cfg.CSRF.Secret == "" {
		errs = append(errs, errors.New("csrf.secret is required when csrf.enabled is true"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Errorf("log.format must be json or text; got %q", cfg.Log.Format))
	}
	validCloudFormats := map[string]bool{"": true, "gcp": true, "gcp_with_resource": true}
	if !validCloudFormats[cfg.Log.CloudFormat] {
		errs = append(errs, fmt.Errorf("log.cloud_format must be empty, gcp, or gcp_with_resource; got %q", cfg.Log.CloudFormat))
	}

	if cfg.Observability.OTelEnabled && cfg.Observability.OTelEndpoint == "" {
		errs = append(errs, errors.New("observability.otel_endpoint is required when otel_enabled is true"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address as "host:port".
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
