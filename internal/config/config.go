package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/register-api/internal/keygen"
	apperrors "github.com/jwalitptl/register-api/pkg/errors"
	"github.com/jwalitptl/register-api/pkg/passwordcheck"
)

// EnvPrefix is the prefix for environment overrides, e.g. REGFORM_SERVER_PORT.
const EnvPrefix = "REGFORM"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Password  PasswordConfig  `mapstructure:"password"`
	Keygen    KeygenConfig    `mapstructure:"keygen"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" split_words:"true"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" split_words:"true"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" split_words:"true"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PasswordConfig mirrors the form's requirement settings. A zero length
// disables that bound.
type PasswordConfig struct {
	MinLength    int  `mapstructure:"min_length" split_words:"true"`
	MaxLength    int  `mapstructure:"max_length" split_words:"true"`
	Capitals     bool `mapstructure:"capitals"`
	Numbers      bool `mapstructure:"numbers"`
	SpecialChars bool `mapstructure:"special_chars" split_words:"true"`
	Strength     int  `mapstructure:"strength"`
}

type KeygenConfig struct {
	Words           int           `mapstructure:"words"`
	Source          string        `mapstructure:"source"`
	RemoteURL       string        `mapstructure:"remote_url" split_words:"true"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures int           `mapstructure:"breaker_failures" split_words:"true"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" split_words:"true"`
	QRSize          int           `mapstructure:"qr_size" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.max_body_bytes", 64<<10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("password.min_length", 3)
	v.SetDefault("password.max_length", 0)
	v.SetDefault("password.capitals", true)
	v.SetDefault("password.numbers", true)
	v.SetDefault("password.special_chars", false)
	v.SetDefault("password.strength", 80)

	v.SetDefault("keygen.words", keygen.DefaultWordCount)
	v.SetDefault("keygen.source", string(keygen.SourceWordlist))
	v.SetDefault("keygen.timeout", 5*time.Second)
	v.SetDefault("keygen.breaker_failures", 5)
	v.SetDefault("keygen.breaker_timeout", 30*time.Second)
	v.SetDefault("keygen.qr_size", keygen.DefaultQRSize)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "regform")
}

// LoadConfig reads config.yaml from the given paths, or from ".", "./config"
// and "/app/config" when none are given. A missing file is not an error;
// defaults and REGFORM_* environment variables still apply.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}

// Requirements converts the password section into immutable requirements.
func (c *PasswordConfig) Requirements() (passwordcheck.Requirements, error) {
	minLength, maxLength := passwordcheck.Disabled(), passwordcheck.Disabled()
	if c.MinLength != 0 {
		minLength = passwordcheck.AtLeast(c.MinLength)
	}
	if c.MaxLength != 0 {
		maxLength = passwordcheck.AtMost(c.MaxLength)
	}

	req, err := passwordcheck.NewRequirements(
		passwordcheck.WithMinLength(minLength),
		passwordcheck.WithMaxLength(maxLength),
		passwordcheck.WithCapitals(c.Capitals),
		passwordcheck.WithNumbers(c.Numbers),
		passwordcheck.WithSpecialChars(c.SpecialChars),
		passwordcheck.WithMinStrength(c.Strength),
	)
	if err != nil {
		return passwordcheck.Requirements{}, apperrors.InvalidConfig("password", err)
	}
	return req, nil
}

// ToGeneratorConfig converts the keygen section
func (c *KeygenConfig) ToGeneratorConfig() keygen.Config {
	return keygen.Config{
		Words:           c.Words,
		Source:          keygen.Source(c.Source),
		RemoteURL:       c.RemoteURL,
		Timeout:         c.Timeout,
		BreakerFailures: c.BreakerFailures,
		BreakerTimeout:  c.BreakerTimeout,
	}
}
