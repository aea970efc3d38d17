// Package config loads process-level settings from BARCUT_ environment
// variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/piwi3910/BarCut/internal/logging"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
)

// Prefix is prepended to every variable name.
const Prefix = "BARCUT_"

type Config struct {
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"console"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Cutting struct {
		StockLength    float64 `env:"STOCK_LENGTH" envDefault:"6100"`
		Kerf           float64 `env:"KERF" envDefault:"3.5"`
		LeadingMargin  float64 `env:"MARGIN_LEADING" envDefault:"2"`
		TrailingMargin float64 `env:"MARGIN_TRAILING" envDefault:"2"`
		ScrapThreshold float64 `env:"SCRAP_THRESHOLD" envDefault:"75"`
		Strategy       string  `env:"STRATEGY" envDefault:"FFD"`
		TimeBudgetMs   int64   `env:"TIME_BUDGET_MS" envDefault:"-1"`
		Acceleration   bool    `env:"ACCELERATION" envDefault:"false"`
	}
	Metrics struct {
		// Textfile receives a Prometheus text dump after each command.
		Textfile string `env:"METRICS_TEXTFILE"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.Cutting.Strategy = string(model.ParseStrategy(cfg.Cutting.Strategy))
	if !model.Strategy(cfg.Cutting.Strategy).Valid() {
		return nil, fmt.Errorf("config: %sSTRATEGY: unknown strategy %q", Prefix, cfg.Cutting.Strategy)
	}
	return cfg, nil
}

// LoggingConfig returns the logger settings.
func (c *Config) LoggingConfig() *logging.Config {
	return &logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// RequestDefaults returns the values a request file falls back to for
// fields it leaves out.
func (c *Config) RequestDefaults() project.Defaults {
	d := project.Defaults{
		StockLength: c.Cutting.StockLength,
		Settings: model.CutSettings{
			Kerf: c.Cutting.Kerf,
			Margins: model.SafetyMargins{
				Leading:  c.Cutting.LeadingMargin,
				Trailing: c.Cutting.TrailingMargin,
			},
			ScrapThreshold: c.Cutting.ScrapThreshold,
		},
		Strategy:     model.Strategy(c.Cutting.Strategy),
		Acceleration: c.Cutting.Acceleration,
	}
	if c.Cutting.TimeBudgetMs >= 0 {
		ms := c.Cutting.TimeBudgetMs
		d.TimeBudgetMs = &ms
	}
	return d
}
