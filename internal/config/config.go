package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thanos-io/thanos/pkg/tracing/otlp"
	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	Upstream    UpstreamConfig    `yaml:"upstream,omitempty"`
	Server      ServerConfig      `yaml:"server,omitempty"`
	Panel       PanelConfig       `yaml:"panel,omitempty"`
	Dispatch    DispatchConfig    `yaml:"dispatch,omitempty"`
	Replay      ReplayConfig      `yaml:"replay,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty"`
	MemoryLimit MemoryLimitConfig `yaml:"memory_limit,omitempty"`
	Tracing     *otlp.Config      `yaml:"tracing,omitempty"`
	CORS        CORSConfig        `yaml:"cors,omitempty"`
}

type UpstreamConfig struct {
	URL string `yaml:"url,omitempty"`
}

type ServerConfig struct {
	InsecureListenAddress string `yaml:"insecure_listen_address,omitempty"`
}

type PanelConfig struct {
	Prefix          string        `yaml:"prefix,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
}

type DispatchConfig struct {
	BufferSize  int           `yaml:"buffer_size,omitempty"`
	GracePeriod time.Duration `yaml:"grace_period,omitempty"`
}

type ReplayConfig struct {
	HARPath    string `yaml:"har_path,omitempty"`
	OutputPath string `yaml:"output_path,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

type MemoryLimitConfig struct {
	Enabled bool    `yaml:"enabled,omitempty"`
	Ratio   float64 `yaml:"ratio,omitempty"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins,omitempty"`
	AllowedMethods   []string `yaml:"allowed_methods,omitempty"`
	AllowedHeaders   []string `yaml:"allowed_headers,omitempty"`
	AllowCredentials bool     `yaml:"allow_credentials,omitempty"`
	MaxAge           int      `yaml:"max_age,omitempty"`
}

var DefaultConfig = newDefaultConfig()

func newDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			InsecureListenAddress: ":9092",
		},
		Panel: PanelConfig{
			Prefix:          "/__profiler",
			RefreshInterval: 2 * time.Second,
		},
		Dispatch: DispatchConfig{
			BufferSize:  100,
			GracePeriod: 5 * time.Second,
		},
		Replay: ReplayConfig{
			OutputPath: "django_query_profiled_data.xls",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		MemoryLimit: MemoryLimitConfig{
			Ratio: 0.9,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		},
	}
}

// Reset restores DefaultConfig to its built-in values.
func Reset() {
	DefaultConfig = newDefaultConfig()
}

func LoadConfig(path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(f, DefaultConfig)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return nil
}

// Validate reports the first setting the proxy cannot run with.
func (c *Config) Validate() error {
	if c.Dispatch.BufferSize <= 0 {
		return fmt.Errorf("dispatch.buffer_size must be positive (got: %d)", c.Dispatch.BufferSize)
	}
	if c.Dispatch.GracePeriod < 0 {
		return fmt.Errorf("dispatch.grace_period must not be negative (got: %v)", c.Dispatch.GracePeriod)
	}
	if c.Panel.RefreshInterval < 0 {
		return fmt.Errorf("panel.refresh_interval must not be negative (got: %v)", c.Panel.RefreshInterval)
	}
	if c.MemoryLimit.Enabled && (c.MemoryLimit.Ratio <= 0 || c.MemoryLimit.Ratio > 1) {
		return fmt.Errorf("memory_limit.ratio must be in (0, 1] (got: %v)", c.MemoryLimit.Ratio)
	}
	return nil
}

func (c *Config) IsTracingEnabled() bool {
	if c == nil {
		return false
	}
	return c.Tracing != nil
}

func (c *Config) GetTracingServiceName() string {
	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		if c == nil || c.Tracing == nil {
			return ""
		}
		return c.Tracing.ServiceName
	}
	return serviceName
}

func RegisterLogFlags(fs *flag.FlagSet) {
	fs.StringVar(&DefaultConfig.Log.Level, "log-level", DefaultConfig.Log.Level, "Log level: debug, info, warn or error.")
	fs.StringVar(&DefaultConfig.Log.Format, "log-format", DefaultConfig.Log.Format, "Log format: text or json.")
}

func RegisterMemoryLimitFlags(fs *flag.FlagSet) {
	fs.BoolVar(&DefaultConfig.MemoryLimit.Enabled, "memory-limit-enabled", DefaultConfig.MemoryLimit.Enabled, "Set GOMEMLIMIT from the cgroup or system memory limit.")
	fs.Float64Var(&DefaultConfig.MemoryLimit.Ratio, "memory-limit-ratio", DefaultConfig.MemoryLimit.Ratio, "Ratio of the detected memory limit to use as GOMEMLIMIT.")
}

func RegisterPanelFlags(fs *flag.FlagSet) {
	fs.StringVar(&DefaultConfig.Panel.Prefix, "panel-prefix", DefaultConfig.Panel.Prefix, "URL path prefix the panel is served under.")
	fs.DurationVar(&DefaultConfig.Panel.RefreshInterval, "panel-refresh-interval", DefaultConfig.Panel.RefreshInterval, "How often the panel page reloads itself, 0 disables reloading.")
}
