package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/notify"
)

func validConfig() *Config {
	return &Config{
		Source:  SourceConfig{Mode: SourceLive, URL: "https://example.com", RatePerSecond: 1},
		Pricing: greeks.DefaultParams(),
		Refresh: RefreshConfig{Interval: 30 * time.Second},
		Export:  ExportConfig{Workers: 2, Assets: []string{"BTC"}, Products: []string{"Vanilla"}},
		WS:      WSConfig{Enabled: true, StreamInterval: time.Second},
		Logging: LoggingConfig{Level: "info"},
		Notify:  notify.Config{Enabled: false},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no error for valid config, got: %v", err)
	}
}

func TestValidate_InvalidAsset(t *testing.T) {
	cfg := validConfig()
	cfg.Export.Assets = []string{"BTC", "SOL"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid asset")
	}

	if !strings.Contains(err.Error(), "SOL") {
		t.Errorf("error should mention invalid asset, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Valid assets: BTC, ETH") {
		t.Errorf("error should list valid assets, got: %v", err)
	}
}

func TestValidate_ArchiveModeNeedsDirectory(t *testing.T) {
	cfg := validConfig()
	cfg.Source = SourceConfig{Mode: SourceArchive}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "archive.directory") {
		t.Errorf("expected archive.directory error, got: %v", err)
	}

	cfg.Archive.Directory = "data/archive"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected archive mode without URL to validate, got: %v", err)
	}
}

func TestValidate_DisabledWSSkipsInterval(t *testing.T) {
	cfg := validConfig()
	cfg.WS = WSConfig{Enabled: false}

	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled websocket should not be validated, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Mode = "replay"
	cfg.Pricing.Volatility = 0
	cfg.Logging.Level = "trace"
	cfg.Export.Assets = []string{"DOGE1", "DOGE2"}
	cfg.Export.Products = []string{"Straddle"}
	cfg.Notify = notify.Config{Enabled: true, Priority: "default", FailureThreshold: 1}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for multiple issues")
	}

	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected *ValidationErrors, got %T", err)
	}
	if len(verrs.Problems) != 4 {
		t.Errorf("expected 4 setting problems, got %d: %v", len(verrs.Problems), verrs.Problems)
	}

	errStr := err.Error()
	for _, want := range []string{"DOGE1", "DOGE2", "Straddle", "source.mode", "pricing.volatility", "logging.level", "notify.topic"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}
