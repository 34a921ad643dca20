package argus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the recognized tuning surface for the whole engine. Zero values
// are repaired to the defaults by the component constructors.
type Config struct {
	ZScoreThreshold               float64 `yaml:"z_score_threshold" json:"z_score_threshold"`
	IQRMultiplier                 float64 `yaml:"iqr_multiplier" json:"iqr_multiplier"`
	SuddenChangeThresholdPct      float64 `yaml:"sudden_change_threshold_pct" json:"sudden_change_threshold_pct"`
	SustainedWindowSize           int     `yaml:"sustained_window_size" json:"sustained_window_size"`
	SustainedChangeThresholdPct   float64 `yaml:"sustained_change_threshold_pct" json:"sustained_change_threshold_pct"`
	ForecastHorizonDays           int     `yaml:"forecast_horizon_days" json:"forecast_horizon_days"`
	ForecastConfidenceLevel       float64 `yaml:"forecast_confidence_level" json:"forecast_confidence_level"`
	SmoothingWindow               int     `yaml:"smoothing_window" json:"smoothing_window"`
	CorrelationSignificanceCutoff float64 `yaml:"correlation_significance_cutoff" json:"correlation_significance_cutoff"`
	LookbackHours                 float64 `yaml:"lookback_hours" json:"lookback_hours"`
	MaxSiblings                   int     `yaml:"max_siblings" json:"max_siblings"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ZScoreThreshold:               2.0,
		IQRMultiplier:                 1.5,
		SuddenChangeThresholdPct:      20,
		SustainedWindowSize:           7,
		SustainedChangeThresholdPct:   10,
		ForecastHorizonDays:           7,
		ForecastConfidenceLevel:       0.95,
		SmoothingWindow:               3,
		CorrelationSignificanceCutoff: 0.6,
		LookbackHours:                 24,
		MaxSiblings:                   50,
	}
}

// LoadConfig reads a YAML config file over the defaults, so a partial file
// only overrides the keys it names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// detectorConfig derives the per-metric detector configuration. The sudden
// drop/spike baseline window is independent of the sustained window and is
// left for NewAnomalyDetector to default.
func (c Config) detectorConfig(direction MetricDirection) DetectorConfig {
	return DetectorConfig{
		ZScoreThreshold:             c.ZScoreThreshold,
		IQRMultiplier:               c.IQRMultiplier,
		SuddenChangeThresholdPct:    c.SuddenChangeThresholdPct,
		SustainedWindowSize:         c.SustainedWindowSize,
		SustainedChangeThresholdPct: c.SustainedChangeThresholdPct,
		Direction:                   direction,
	}
}

func (c Config) forecastConfig() ForecastConfig {
	return ForecastConfig{
		Horizon:              c.ForecastHorizonDays,
		ConfidenceLevel:      c.ForecastConfidenceLevel,
		SmoothingWindow:      c.SmoothingWindow,
		TrendEpsilonFraction: 0.01,
	}
}

func (c Config) rootCauseConfig() RootCauseConfig {
	return RootCauseConfig{
		LookbackHours:                 c.LookbackHours,
		CorrelationSignificanceCutoff: c.CorrelationSignificanceCutoff,
		MaxSiblings:                   c.MaxSiblings,
		LeadingIndicatorBonus:         0.1,
	}
}
