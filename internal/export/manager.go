package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/chain"
	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
	"github.com/dgnsrekt/optionbook/internal/staging"
)

type Manager struct {
	pricer  *greeks.Pricer
	feeds   orderbook.Feeds
	staging *staging.Manager
	workers int
	logger  *zap.Logger
}

type BatchResult struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Empty   int      `json:"empty"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func NewManager(pricer *greeks.Pricer, feeds orderbook.Feeds, staging *staging.Manager, workers int, logger *zap.Logger) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		pricer:  pricer,
		feeds:   feeds,
		staging: staging,
		workers: workers,
		logger:  logger,
	}
}

// Execute builds and writes every task's chain from one book into the
// staging area. The caller commits or cleans up the batch.
func (m *Manager) Execute(ctx context.Context, book *orderbook.Response, tasks []Task) (*BatchResult, error) {
	result := &BatchResult{Total: len(tasks)}

	if len(tasks) == 0 {
		return result, nil
	}
	if book == nil {
		return nil, fmt.Errorf("no order book to export")
	}

	jobs := make(chan Task, len(tasks))
	results := make(chan TaskResult, len(tasks))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			m.worker(ctx, workerID, book, jobs, results)
		}(i)
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return
			case jobs <- task:
			}
		}
	}()

	// Wait for workers and close results
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	for r := range results {
		switch {
		case r.Empty:
			result.Empty++
		case r.Success:
			result.Success++
		default:
			result.Failed++
			if r.Error != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.Task, r.Error))
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (m *Manager) worker(ctx context.Context, id int, book *orderbook.Response, jobs <-chan Task, results chan<- TaskResult) {
	for task := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := m.processTask(book, task)

		select {
		case <-ctx.Done():
			return
		case results <- result:
		}
	}
}

func (m *Manager) processTask(book *orderbook.Response, task Task) TaskResult {
	result := TaskResult{Task: task}

	orders := orderbook.Filter(book.Data.Orders, m.feeds, task.Asset, task.Product, task.Expiry)
	c := chain.Build(orders, book.Data.MarketData.Spot(task.Asset), m.pricer)
	if len(c.Rows) == 0 {
		m.logger.Debug("empty chain", zap.String("task", task.String()))
		result.Empty = true
		return result
	}

	rows := records(c)
	stagingPath := task.OutputPath(m.staging.StagingRoot())
	size, err := m.staging.WriteAtomic(stagingPath, func(w io.Writer) (int64, error) {
		var buf bytes.Buffer
		if err := gocsv.Marshal(&rows, &buf); err != nil {
			return 0, fmt.Errorf("encoding csv: %w", err)
		}
		return buf.WriteTo(w)
	})
	if err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	result.Rows = len(rows)
	result.BytesSize = size
	m.logger.Info("exported", zap.String("task", task.String()), zap.Int("rows", len(rows)), zap.Int64("bytes", size))

	return result
}
