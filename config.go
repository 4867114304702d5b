package tweetstream

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// Version is reported in the default User-Agent.
const Version = "0.4.0"

// ClientConfig holds all configuration for the stream client.
type ClientConfig struct {
	// BaseURL is the scheme and host of the streaming API.
	// Default: https://stream.twitter.com
	BaseURL string `param:"base_url" validate:"omitempty,url"`

	// Username and Password are sent as HTTP Basic credentials when
	// Credentials and CredentialsFile are unset.
	Username string
	Password string

	// CredentialsFile is a file holding a single "user:password" line.
	// It is watched and re-read on change.
	CredentialsFile string

	// Credentials overrides Username/Password/CredentialsFile.
	Credentials CredentialsProvider

	// Proxy is an optional HTTP(S) proxy URL for the default transport.
	Proxy string `param:"proxy" validate:"omitempty,url"`

	// UserAgent is sent on every connection attempt.
	UserAgent string

	// ConnectTimeout bounds dialing and waiting for response headers.
	// It never applies to reading the open stream.
	ConnectTimeout time.Duration `param:"connect_timeout" validate:"gte=0"`

	// ReadBufferSize is the most bytes requested from the connection per read.
	ReadBufferSize int `param:"read_buffer_size" validate:"gte=0"`

	// MaxLineSize caps a single record; longer lines fail the session.
	MaxLineSize int `param:"max_line_size" validate:"gte=0"`

	// RatePeriod is the window over which Stats.Rate is measured.
	RatePeriod time.Duration `param:"rate_period" validate:"gte=0"`

	// Logger receives connection lifecycle logs. Default: slog.Default().
	Logger *slog.Logger

	// MetricsHook is called with success=true when a stream opens and with
	// success=false when a session ends in an error. variant is the stream kind.
	MetricsHook func(variant string, success bool)

	// TracerProvider creates the tracer for connection spans.
	// Default: the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider

	// Transport overrides the default net/http transport.
	Transport Transport
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *ClientConfig) defaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "go-tweetstream/" + Version
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.MaxLineSize == 0 {
		cfg.MaxLineSize = 1 << 20
	}
	if cfg.RatePeriod == 0 {
		cfg.RatePeriod = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Validate checks the config, returning an InvalidParameterError for the first
// rejected field.
func (cfg *ClientConfig) Validate() error {
	return validateParams(cfg)
}

// fileConfig is the subset of ClientConfig that can be set from the
// environment or a YAML file.
type fileConfig struct {
	BaseURL         string        `yaml:"base_url" env:"TWEETSTREAM_BASE_URL"`
	Username        string        `yaml:"username" env:"TWEETSTREAM_USERNAME"`
	Password        string        `yaml:"password" env:"TWEETSTREAM_PASSWORD"`
	CredentialsFile string        `yaml:"credentials_file" env:"TWEETSTREAM_CREDENTIALS_FILE"`
	Proxy           string        `yaml:"proxy" env:"TWEETSTREAM_PROXY"`
	UserAgent       string        `yaml:"user_agent" env:"TWEETSTREAM_USER_AGENT"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"TWEETSTREAM_CONNECT_TIMEOUT" envDefault:"10s"`
	ReadBufferSize  int           `yaml:"read_buffer_size" env:"TWEETSTREAM_READ_BUFFER_SIZE" envDefault:"4096"`
	MaxLineSize     int           `yaml:"max_line_size" env:"TWEETSTREAM_MAX_LINE_SIZE" envDefault:"1048576"`
	RatePeriod      time.Duration `yaml:"rate_period" env:"TWEETSTREAM_RATE_PERIOD" envDefault:"10s"`
}

func (f fileConfig) clientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:         f.BaseURL,
		Username:        f.Username,
		Password:        f.Password,
		CredentialsFile: f.CredentialsFile,
		Proxy:           f.Proxy,
		UserAgent:       f.UserAgent,
		ConnectTimeout:  f.ConnectTimeout,
		ReadBufferSize:  f.ReadBufferSize,
		MaxLineSize:     f.MaxLineSize,
		RatePeriod:      f.RatePeriod,
	}
}

// LoadConfig builds a ClientConfig from TWEETSTREAM_* environment variables.
func LoadConfig() (ClientConfig, error) {
	var f fileConfig
	if err := env.Parse(&f); err != nil {
		return ClientConfig{}, err
	}
	cfg := f.clientConfig()
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// LoadConfigFile builds a ClientConfig from a YAML file. Unset fields are left
// zero and take their defaults in NewClient.
func LoadConfigFile(path string) (ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("read config: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ClientConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg := f.clientConfig()
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
