package export

import (
	"fmt"
	"path/filepath"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// Task is one chain to export: an asset, a product and an expiry day.
type Task struct {
	Asset   orderbook.Asset
	Product greeks.Structure
	Expiry  int64
	Batch   string
}

func (t Task) Label() string {
	return orderbook.ExpiryLabel(t.Expiry)
}

func (t Task) OutputPath(baseDir string) string {
	return filepath.Join(baseDir, t.Batch, string(t.Asset), t.Product.String(), t.Label()+".csv")
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Batch, t.Asset, t.Product, t.Label())
}

type TaskResult struct {
	Task      Task
	Success   bool
	Empty     bool
	Rows      int
	BytesSize int64
	Error     error
}

// Plan expands every asset and product against the expiries present in the
// book. Products with no legs are skipped.
func Plan(book *orderbook.Response, feeds orderbook.Feeds, assets []orderbook.Asset, products []greeks.Structure, batch string) []Task {
	var tasks []Task
	for _, asset := range assets {
		expiries := orderbook.AvailableExpiries(book.Data.Orders, feeds, asset)
		for _, product := range products {
			if product == greeks.Unsupported {
				continue
			}
			for _, expiry := range expiries {
				tasks = append(tasks, Task{Asset: asset, Product: product, Expiry: expiry, Batch: batch})
			}
		}
	}
	return tasks
}
