package config

import (
	"github.com/caarlos0/env/v8"
	"log/slog"
	"os"
	"time"
)

type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"Blur service"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	OTLPEnabled bool `env:"OTLP_ENABLED" envDefault:"false"`
	TraceStdout bool `env:"TRACE_STDOUT" envDefault:"false"`

	Engine         string        `env:"BLUR_ENGINE" envDefault:"native"`
	TempDir        string        `env:"BLUR_TEMP_DIR"`
	BodyLimitMB    int           `env:"BODY_LIMIT_MB" envDefault:"50"`
	MaxKernelSize  int           `env:"MAX_KERNEL_SIZE" envDefault:"255"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	JPEGQuality    int           `env:"JPEG_QUALITY" envDefault:"95"`
	WebPQuality    int           `env:"WEBP_QUALITY" envDefault:"100"`

	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	RateLimitDuration    time.Duration `env:"RATE_LIMIT_DURATION" envDefault:"5s"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	Defaults  BlurDefaults
	Dragonfly Dragonfly
	S3        S3
	Mongo     Mongo
}

// BlurDefaults holds every value a request may leave out.
type BlurDefaults struct {
	SigmaY float64 `env:"BLUR_DEFAULT_SIGMA_Y" envDefault:"0"`
	Format string  `env:"BLUR_DEFAULT_FORMAT" envDefault:".png"`

	EncodedKernelWidth  int     `env:"BLUR_ENCODED_KERNEL_WIDTH" envDefault:"45"`
	EncodedKernelHeight int     `env:"BLUR_ENCODED_KERNEL_HEIGHT" envDefault:"45"`
	EncodedSigmaX       float64 `env:"BLUR_ENCODED_SIGMA_X" envDefault:"0"`
	EncodedSigmaY       float64 `env:"BLUR_ENCODED_SIGMA_Y" envDefault:"0"`
	EncodedFormat       string  `env:"BLUR_ENCODED_FORMAT" envDefault:".png"`
}

type S3 struct {
	Region    string `env:"S3_REGION"`
	Bucket    string `env:"S3_BUCKET"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Endpoint  string `env:"S3_ENDPOINT"`
	Prefix    string `env:"S3_PREFIX" envDefault:"blurred"`
}

func (s S3) Enabled() bool {
	return s.Bucket != ""
}

type Mongo struct {
	URI        string `env:"MONGO_URI"`
	Database   string `env:"MONGO_DATABASE" envDefault:"blurrer"`
	Collection string `env:"MONGO_COLLECTION" envDefault:"requests"`
}

func (m Mongo) Enabled() bool {
	return m.URI != ""
}

func New() *Config {
	conf := &Config{}

	if err := env.Parse(conf); err != nil {
		slog.Error(err.Error())

		panic("Failed to parse config")
	}

	conf.applyFallbacks()

	return conf
}

// Parse reads the configuration from the given environment instead of the
// process one.
func Parse(environment map[string]string) (*Config, error) {
	conf := &Config{}

	if err := env.ParseWithOptions(conf, env.Options{Environment: environment}); err != nil {
		return nil, err
	}

	conf.applyFallbacks()

	return conf, nil
}

func (c *Config) applyFallbacks() {
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
}

func (c *Config) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}
