package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Env struct {
	AppName string `env:"APP_NAME" envDefault:"Crack Detection API" validate:"required"`
	AppPort string `env:"APP_PORT" envDefault:"3000" validate:"required,numeric"`

	BodyLimitMB       int           `env:"BODY_LIMIT_MB"      envDefault:"210" validate:"gt=0"`
	MaxVideoSizeMB    int           `env:"MAX_VIDEO_SIZE_MB"  envDefault:"200" validate:"gt=0,ltefield=BodyLimitMB"`
	ProcessingTimeout time.Duration `env:"PROCESSING_TIMEOUT" envDefault:"5m"  validate:"gt=0"`
	TempDir           string        `env:"TEMP_DIR"`

	WorkingWidth  int `env:"WORKING_WIDTH"  envDefault:"640" validate:"gt=0"`
	WorkingHeight int `env:"WORKING_HEIGHT" envDefault:"360" validate:"gt=0"`
	JPEGQuality   int `env:"JPEG_QUALITY"   envDefault:"90"  validate:"min=1,max=100"`

	CrackDetectionURL    string        `env:"AI_CRACK_DETECTION_URL" envDefault:"ws://localhost:8000/api/v1/crack/ws" validate:"required,url"`
	DetectorReadTimeout  time.Duration `env:"DETECTOR_READ_TIMEOUT"  envDefault:"10s" validate:"gt=0"`
	DetectorWriteTimeout time.Duration `env:"DETECTOR_WRITE_TIMEOUT" envDefault:"5s"  validate:"gt=0"`
	DetectorPingInterval time.Duration `env:"DETECTOR_PING_INTERVAL" envDefault:"30s" validate:"gt=0"`

	FFmpegPath  string `env:"FFMPEG_PATH"  envDefault:"ffmpeg"  validate:"required"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe" validate:"required"`

	// ProxyHeader names the header carrying the client IP behind a reverse proxy, e.g.
	// X-Forwarded-For. Empty keys the rate limiter on the socket address.
	ProxyHeader    string   `env:"PROXY_HEADER"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"5"  validate:"gt=0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10" validate:"gt=0"`
}

func LoadEnv(validate *validator.Validate) (*Env, error) {
	cfg := &Env{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	return cfg, nil
}

func (e *Env) BodyLimitBytes() int {
	return e.BodyLimitMB * 1024 * 1024
}

func (e *Env) MaxVideoSizeBytes() int64 {
	return int64(e.MaxVideoSizeMB) * 1024 * 1024
}
