package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/pdfgrader/grader/internal/engine"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	WebDir         string `envconfig:"WEB_DIR" default:"./web"`
	AssetDir       string `envconfig:"ASSET_DIR" default:"./data/fonts"`
	HebrewFont     string `envconfig:"HEBREW_FONT" default:""`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	// Grading defaults
	DefaultZoom float64 `envconfig:"DEFAULT_ZOOM" default:"1.5"`
	PenColor    string  `envconfig:"PEN_COLOR" default:"#ff0000"`
	PenWidth    float64 `envconfig:"PEN_WIDTH" default:"2"`
	TextSize    float64 `envconfig:"TEXT_SIZE" default:"16"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins returns the CORS allow-list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// EngineOptions returns the defaults a new grading session starts with.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Zoom:     c.DefaultZoom,
		PenColor: c.PenColor,
		PenWidth: c.PenWidth,
		TextSize: c.TextSize,
	}
}
