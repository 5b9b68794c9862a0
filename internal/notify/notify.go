package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/export"
)

// Notifier is the interface for sending refresh and export notifications.
type Notifier interface {
	SendRefreshFailure(ctx context.Context, failures int, lastSuccess time.Time, err error) error
	SendRefreshRecovered(ctx context.Context, failures int, downtime time.Duration) error
	SendExportSuccess(ctx context.Context, result *export.BatchResult, duration time.Duration) error
	SendExportFailure(ctx context.Context, result *export.BatchResult, duration time.Duration, err error) error
}

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger
}

// NewClient creates a new ntfy client.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// SendRefreshFailure alerts that the order book has not refreshed for a while.
func (c *Client) SendRefreshFailure(ctx context.Context, failures int, lastSuccess time.Time, err error) error {
	if !c.config.Enabled {
		return nil
	}

	title := "Order Book Refresh Failing"
	message := FormatRefreshFailure(failures, lastSuccess, err)
	tags := c.config.Tags + ",warning"

	return c.send(ctx, title, message, tags, "high")
}

// SendRefreshRecovered reports that refreshes are succeeding again.
func (c *Client) SendRefreshRecovered(ctx context.Context, failures int, downtime time.Duration) error {
	if !c.config.Enabled {
		return nil
	}

	title := "Order Book Refresh Recovered"
	message := FormatRefreshRecovered(failures, downtime)
	tags := c.config.Tags + ",white_check_mark"

	return c.send(ctx, title, message, tags, c.config.Priority)
}

// SendExportSuccess sends a success notification.
func (c *Client) SendExportSuccess(ctx context.Context, result *export.BatchResult, duration time.Duration) error {
	if !c.config.Enabled {
		return nil
	}

	title := "Chain Export Complete"
	message := FormatExportSuccess(result, duration)
	tags := c.config.Tags + ",white_check_mark"

	return c.send(ctx, title, message, tags, c.config.Priority)
}

// SendExportFailure sends a failure notification.
func (c *Client) SendExportFailure(ctx context.Context, result *export.BatchResult, duration time.Duration, err error) error {
	if !c.config.Enabled {
		return nil
	}

	title := "Chain Export Failed"
	message := FormatExportFailure(result, duration, err)
	tags := c.config.Tags + ",x"
	priority := "high" // Override to high priority for failures

	return c.send(ctx, title, message, tags, priority)
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is a no-op implementation for when notifications are disabled.
type NoopNotifier struct{}

func (n *NoopNotifier) SendRefreshFailure(_ context.Context, _ int, _ time.Time, _ error) error {
	return nil
}

func (n *NoopNotifier) SendRefreshRecovered(_ context.Context, _ int, _ time.Duration) error {
	return nil
}

func (n *NoopNotifier) SendExportSuccess(_ context.Context, _ *export.BatchResult, _ time.Duration) error {
	return nil
}

func (n *NoopNotifier) SendExportFailure(_ context.Context, _ *export.BatchResult, _ time.Duration, _ error) error {
	return nil
}

// New creates the appropriate notifier based on config.
func New(cfg *Config, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
