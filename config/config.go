// Package config loads container settings from files and the environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/binder"
	"github.com/xraph/binder/metrics"
	"github.com/xraph/binder/tracing"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BINDER"

// Config holds container settings.
type Config struct {
	// DefaultScope is the scope of bindings that do not choose one.
	DefaultScope string `mapstructure:"default_scope"`
	// Verify makes Build run binder.Verify.
	Verify      bool   `mapstructure:"verify"`
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"`

	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// MetricsConfig controls Prometheus resolution metrics.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig controls OpenTelemetry resolution spans.
type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	TracerName string `mapstructure:"tracer_name"`
}

// Load reads configuration in increasing precedence: defaults, an optional
// binder.yaml found in paths, then BINDER_* environment variables. A .env
// file in the working directory or in any of paths is loaded into the
// environment first; variables already set are not overridden.
func Load(paths ...string) (*Config, error) {
	loadDotEnv(paths)

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("binder")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	// Config file is optional
	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(paths []string) {
	files := []string{".env"}
	for _, path := range paths {
		files = append(files, filepath.Join(path, ".env"))
	}
	for _, file := range files {
		// Non-fatal: .env is usually absent outside development
		_ = godotenv.Load(file)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_scope", binder.Transient.String())
	v.SetDefault("verify", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "binder")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.tracer_name", "github.com/xraph/binder")
}

func validate(cfg *Config) error {
	if _, err := binder.ParseScope(cfg.DefaultScope); err != nil {
		return fmt.Errorf("default_scope: %w", err)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		return errors.New("metrics.namespace is required when metrics are enabled")
	}
	return nil
}

// Options converts the configuration into builder options. reg and tp are
// used only when metrics or tracing are enabled; nil selects the Prometheus
// default registerer or the global tracer provider.
func (c *Config) Options(reg prometheus.Registerer, tp trace.TracerProvider) []binder.Option {
	// Validated by Load
	scope, _ := binder.ParseScope(c.DefaultScope)

	opts := []binder.Option{binder.WithDefaultScope(scope)}
	if c.Verify {
		opts = append(opts, binder.WithVerification())
	}
	if c.Metrics.Enabled {
		opts = append(opts, binder.WithMiddleware(metrics.NewMiddleware(reg, c.Metrics.Namespace)))
	}
	if c.Tracing.Enabled {
		opts = append(opts, binder.WithMiddleware(tracing.NewMiddleware(tp, c.Tracing.TracerName)))
	}
	return opts
}
