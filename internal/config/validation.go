package config

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	InvalidAssets   []string
	InvalidProducts []string
	Problems        []string
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.InvalidAssets) > 0 || len(e.InvalidProducts) > 0 || len(e.Problems) > 0
}

func (e *ValidationErrors) addf(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")

	if len(e.InvalidAssets) > 0 {
		sb.WriteString("\nInvalid assets:\n")
		for _, a := range e.InvalidAssets {
			sb.WriteString(fmt.Sprintf("  - %s\n", a))
		}
		sb.WriteString("\nValid assets: BTC, ETH\n")
	}

	if len(e.InvalidProducts) > 0 {
		sb.WriteString("\nInvalid products:\n")
		for _, p := range e.InvalidProducts {
			sb.WriteString(fmt.Sprintf("  - %s\n", p))
		}
		sb.WriteString("\nValid products: Vanilla, Spread, Butterfly, Condor\n")
	}

	if len(e.Problems) > 0 {
		sb.WriteString("\nInvalid settings:\n")
		for _, p := range e.Problems {
			sb.WriteString(fmt.Sprintf("  - %s\n", p))
		}
	}

	return sb.String()
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	switch c.Source.Mode {
	case SourceLive:
		if c.Source.URL == "" {
			errs.addf("source.url is required in live mode")
		}
		if c.Source.RatePerSecond < 1 {
			errs.addf("source.rate_per_second must be >= 1")
		}
	case SourceArchive:
		if c.Archive.Directory == "" {
			errs.addf("archive.directory is required in archive mode")
		}
	default:
		errs.addf("source.mode must be 'live' or 'archive', got %q", c.Source.Mode)
	}

	if c.Pricing.Volatility <= 0 {
		errs.addf("pricing.volatility must be > 0, got %v", c.Pricing.Volatility)
	}
	if c.Refresh.Interval <= 0 {
		errs.addf("refresh.interval must be > 0")
	}
	if c.WS.Enabled && c.WS.StreamInterval <= 0 {
		errs.addf("ws.stream_interval must be > 0")
	}
	if c.Export.Workers < 1 {
		errs.addf("export.workers must be >= 1")
	}
	if !ValidLogLevels[c.Logging.Level] {
		errs.addf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	if err := c.Notify.Validate(); err != nil {
		errs.addf("%v", err)
	}

	validateExportSelection(errs, c.Export.Assets, c.Export.Products)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// validateExportSelection checks asset and product names.
func validateExportSelection(errs *ValidationErrors, assets, products []string) {
	for _, a := range assets {
		if _, err := orderbook.ParseAsset(a); err != nil {
			errs.InvalidAssets = append(errs.InvalidAssets, a)
		}
	}
	for _, p := range products {
		if _, err := greeks.ParseStructure(p); err != nil {
			errs.InvalidProducts = append(errs.InvalidProducts, p)
		}
	}
}
