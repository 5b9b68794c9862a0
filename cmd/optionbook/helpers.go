package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/dgnsrekt/optionbook/internal/api"
	"github.com/dgnsrekt/optionbook/internal/archive"
	"github.com/dgnsrekt/optionbook/internal/config"
	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/market"
)

// fetchSnapshot reads one book from the configured source.
func fetchSnapshot(ctx context.Context) (*market.Snapshot, error) {
	var client api.Client
	switch cfg.Source.Mode {
	case config.SourceArchive:
		fileClient, err := archive.NewFileClient(cfg.Archive.Directory, logger)
		if err != nil {
			return nil, err
		}
		defer fileClient.Close()
		client = fileClient
	default:
		client = api.NewClient(
			cfg.Source.URL,
			cfg.Source.RatePerSecond,
			cfg.Source.Timeout,
			cfg.Source.RetryDelay,
			cfg.Source.RetryCount,
			logger,
		)
	}

	resp, err := client.FetchBook(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching order book: %w", err)
	}
	return market.NewSnapshot(resp, time.Now()), nil
}

// parseStrikes accepts "90000,95000" or repeated values.
func parseStrikes(values []string) ([]float64, error) {
	var strikes []float64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			k, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid strike %q: %w", part, err)
			}
			strikes = append(strikes, k)
		}
	}
	return strikes, nil
}

// parseExpiry accepts unix seconds, RFC 3339 or YYYY-MM-DD (08:00 UTC).
func parseExpiry(s string) (int64, error) {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Add(8 * time.Hour).Unix(), nil
	}
	return 0, fmt.Errorf("invalid expiry %q (use unix seconds, RFC 3339 or YYYY-MM-DD)", s)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func fmtNum(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func greeksCells(g *greeks.Greeks) []string {
	if g == nil {
		return []string{"-", "-", "-", "-"}
	}
	return []string{fmtNum(g.Delta, 4), fmtNum(g.Gamma, 6), fmtNum(g.Vega, 2), fmtNum(g.Theta, 2)}
}
