package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Detector services
	ForkliftDetectorEndpoint string  `env:"FORKLIFT_DETECTOR_ENDPOINT" envDefault:"http://localhost:8081"`
	PersonDetectorEndpoint   string  `env:"PERSON_DETECTOR_ENDPOINT" envDefault:"http://localhost:8082"`
	ForkliftClass            string  `env:"FORKLIFT_CLASS" envDefault:"forklift"`
	PersonClass              string  `env:"PERSON_CLASS" envDefault:"person"`
	ForkliftConfidence       float32 `env:"FORKLIFT_CONFIDENCE" envDefault:"0.5"`
	PersonConfidence         float32 `env:"PERSON_CONFIDENCE" envDefault:"0.5"`

	// Inference
	InferenceWidth int `env:"INFERENCE_WIDTH" envDefault:"640"`
	FrameSkip      int `env:"FRAME_SKIP" envDefault:"10"`

	// Proximity thresholds in original-frame pixels
	ForkliftProximityPx float64 `env:"FORKLIFT_PROXIMITY_PX" envDefault:"120"`
	PersonProximityPx   float64 `env:"PERSON_PROXIMITY_PX" envDefault:"120"`

	// Alerting
	CooldownWindow   time.Duration `env:"COOLDOWN_WINDOW" envDefault:"10s"`
	ReconnectBackoff time.Duration `env:"RECONNECT_BACKOFF" envDefault:"2s"`

	// Storage
	DBPath     string `env:"DB_PATH" envDefault:"sisa.db"`
	StorageDir string `env:"STORAGE_DIR" envDefault:"events_images"`

	// HTTP observer surface
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Auth (optional, off by default)
	AuthEnabled  bool          `env:"AUTH_ENABLED" envDefault:"false"`
	AuthUsername string        `env:"AUTH_USERNAME" envDefault:"admin"`
	AuthPassword string        `env:"AUTH_PASSWORD"`
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiry    time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
}

// Load parses configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for values that would make the pipeline misbehave.
func (c *Config) Validate() error {
	if c.InferenceWidth <= 0 {
		return fmt.Errorf("inference width must be positive, got %d", c.InferenceWidth)
	}
	if c.FrameSkip <= 0 {
		return fmt.Errorf("frame skip must be positive, got %d", c.FrameSkip)
	}
	if c.ForkliftProximityPx <= 0 || c.PersonProximityPx <= 0 {
		return fmt.Errorf("proximity thresholds must be positive")
	}
	if c.CooldownWindow < 0 {
		return fmt.Errorf("cooldown window must not be negative, got %s", c.CooldownWindow)
	}
	if c.ReconnectBackoff <= 0 {
		return fmt.Errorf("reconnect backoff must be positive, got %s", c.ReconnectBackoff)
	}
	if c.ForkliftDetectorEndpoint == "" || c.PersonDetectorEndpoint == "" {
		return fmt.Errorf("both detector endpoints must be set")
	}
	return nil
}
