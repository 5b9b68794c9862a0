package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for explicit missing config file, got %+v", cfg)
	}

	// Run from a directory without configs/ so only defaults apply
	t.Chdir(t.TempDir())

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got error: %v", err)
	}

	if cfg.Source.Mode != SourceLive {
		t.Errorf("expected live mode, got '%s'", cfg.Source.Mode)
	}
	if cfg.Pricing != greeks.DefaultParams() {
		t.Errorf("expected default pricing params, got %+v", cfg.Pricing)
	}
	if cfg.Refresh.Interval != 30*time.Second {
		t.Errorf("expected 30s refresh, got %s", cfg.Refresh.Interval)
	}
	if cfg.Feeds.Feeds()[orderbook.BTC] != orderbook.DefaultBTCFeed {
		t.Errorf("expected default BTC feed, got '%s'", cfg.Feeds.BTC)
	}
	if len(cfg.Products()) != 4 {
		t.Errorf("expected 4 export products, got %d", len(cfg.Products()))
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPTIONBOOK_PRICING_VOLATILITY", "0.8")
	t.Setenv("OPTIONBOOK_SERVER_PORT", "9090")
	t.Setenv("OPTIONBOOK_REFRESH_INTERVAL", "10s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Pricing.Volatility != 0.8 {
		t.Errorf("expected volatility 0.8, got %v", cfg.Pricing.Volatility)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got '%s'", cfg.Server.Port)
	}
	if cfg.Refresh.Interval != 10*time.Second {
		t.Errorf("expected 10s refresh, got %s", cfg.Refresh.Interval)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := []byte(`
source:
  mode: archive
archive:
  directory: /tmp/books
pricing:
  risk_free_rate: 0.05
export:
  products: [spread, condor]
`)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Source.Mode != SourceArchive {
		t.Errorf("expected archive mode, got '%s'", cfg.Source.Mode)
	}
	if cfg.Pricing.RiskFreeRate != 0.05 {
		t.Errorf("expected rate 0.05, got %v", cfg.Pricing.RiskFreeRate)
	}
	if cfg.Pricing.Volatility != greeks.DefaultVolatility {
		t.Errorf("expected default volatility, got %v", cfg.Pricing.Volatility)
	}
	products := cfg.Products()
	if len(products) != 2 || products[0] != greeks.Spread || products[1] != greeks.Condor {
		t.Errorf("unexpected products: %v", products)
	}
}
