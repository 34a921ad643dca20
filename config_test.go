package argus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ZScoreThreshold != 2.0 {
		t.Errorf("ZScoreThreshold = %f, want 2.0", cfg.ZScoreThreshold)
	}
	if cfg.IQRMultiplier != 1.5 {
		t.Errorf("IQRMultiplier = %f, want 1.5", cfg.IQRMultiplier)
	}
	if cfg.SuddenChangeThresholdPct != 20 {
		t.Errorf("SuddenChangeThresholdPct = %f, want 20", cfg.SuddenChangeThresholdPct)
	}
	if cfg.ForecastHorizonDays != 7 {
		t.Errorf("ForecastHorizonDays = %d, want 7", cfg.ForecastHorizonDays)
	}
	if cfg.LookbackHours != 24 {
		t.Errorf("LookbackHours = %f, want 24", cfg.LookbackHours)
	}
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.yaml")
	body := "z_score_threshold: 3.5\nforecast_horizon_days: 14\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ZScoreThreshold != 3.5 {
		t.Errorf("ZScoreThreshold = %f, want 3.5 from file", cfg.ZScoreThreshold)
	}
	if cfg.ForecastHorizonDays != 14 {
		t.Errorf("ForecastHorizonDays = %d, want 14 from file", cfg.ForecastHorizonDays)
	}
	// Everything not named keeps its default.
	if cfg.IQRMultiplier != 1.5 {
		t.Errorf("IQRMultiplier = %f, want default 1.5", cfg.IQRMultiplier)
	}
	if cfg.CorrelationSignificanceCutoff != 0.6 {
		t.Errorf("CorrelationSignificanceCutoff = %f, want default 0.6", cfg.CorrelationSignificanceCutoff)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("z_score_threshold: [not a number"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestConfigDerivations(t *testing.T) {
	cfg := DefaultConfig()

	dc := cfg.detectorConfig(LowerIsBetter)
	if dc.Direction != LowerIsBetter {
		t.Errorf("detector direction = %v, want LowerIsBetter", dc.Direction)
	}
	if dc.ZScoreThreshold != cfg.ZScoreThreshold {
		t.Error("detector config must carry the z-score threshold through")
	}

	// The sustained window is its own knob; widening it must not move the
	// sudden drop/spike baseline window off its default.
	cfg.SustainedWindowSize = 14
	dc = cfg.detectorConfig(HigherIsBetter)
	if dc.SustainedWindowSize != 14 {
		t.Errorf("SustainedWindowSize = %d, want 14", dc.SustainedWindowSize)
	}
	if got := NewAnomalyDetector(dc).config.SuddenWindowSize; got != 7 {
		t.Errorf("SuddenWindowSize = %d, want the detector default 7", got)
	}

	fc := cfg.forecastConfig()
	if fc.Horizon != cfg.ForecastHorizonDays || fc.ConfidenceLevel != cfg.ForecastConfidenceLevel {
		t.Error("forecast config must carry horizon and confidence through")
	}

	rc := cfg.rootCauseConfig()
	if rc.LookbackHours != cfg.LookbackHours || rc.MaxSiblings != cfg.MaxSiblings {
		t.Error("root cause config must carry lookback and sibling cap through")
	}
}
