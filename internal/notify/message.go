package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/optionbook/internal/export"
)

// FormatExportSuccess creates an export success notification body.
func FormatExportSuccess(result *export.BatchResult, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d chains\n", result.Total))
	sb.WriteString(fmt.Sprintf("Success: %d\n", result.Success))
	sb.WriteString(fmt.Sprintf("Empty: %d\n", result.Empty))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	return sb.String()
}

// FormatExportFailure creates an export failure notification body.
func FormatExportFailure(result *export.BatchResult, duration time.Duration, err error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d chains\n", result.Total))
	sb.WriteString(fmt.Sprintf("Success: %d\n", result.Success))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("Empty: %d\n", result.Empty))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	if err != nil {
		sb.WriteString(fmt.Sprintf("\n\nError: %v", err))
	}

	// Include first 3 error messages if available
	if len(result.Errors) > 0 {
		sb.WriteString("\n\nErrors:\n")
		limit := 3
		if len(result.Errors) < limit {
			limit = len(result.Errors)
		}
		for i := 0; i < limit; i++ {
			sb.WriteString(fmt.Sprintf("- %s\n", result.Errors[i]))
		}
		if len(result.Errors) > 3 {
			sb.WriteString(fmt.Sprintf("... and %d more errors", len(result.Errors)-3))
		}
	}

	return sb.String()
}

// FormatRefreshFailure describes a run of failed order book refreshes.
func FormatRefreshFailure(failures int, lastSuccess time.Time, err error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Consecutive failures: %d\n", failures))
	if lastSuccess.IsZero() {
		sb.WriteString("Last success: never")
	} else {
		sb.WriteString(fmt.Sprintf("Last success: %s (%s ago)",
			lastSuccess.UTC().Format(time.RFC3339),
			time.Since(lastSuccess).Round(time.Second)))
	}
	if err != nil {
		sb.WriteString(fmt.Sprintf("\n\nError: %v", err))
	}

	return sb.String()
}

// FormatRefreshRecovered describes the end of a failure run.
func FormatRefreshRecovered(failures int, downtime time.Duration) string {
	return fmt.Sprintf("Recovered after %d failed refreshes\nDowntime: %s", failures, downtime.Round(time.Second))
}
