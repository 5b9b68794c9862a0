// Package archive stores fetched order books as zstd-compressed JSON and
// replays them for offline use.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/orderbook"
	"github.com/dgnsrekt/optionbook/internal/staging"
)

const (
	dateLayout = "2006-01-02"
	filePrefix = "book_"
	fileSuffix = ".json.zst"
)

// Recorder writes each book to <dir>/<YYYY-MM-DD>/book_<unix>.json.zst.
type Recorder struct {
	staging *staging.Manager
	encoder *zstd.Encoder
	logger  *zap.Logger
}

func NewRecorder(dir string, logger *zap.Logger) (*Recorder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Recorder{
		staging: staging.NewManager(dir),
		encoder: enc,
		logger:  logger,
	}, nil
}

// Path returns the archive file for a fetch time.
func (r *Recorder) Path(fetchedAt time.Time) string {
	return SnapshotPath(r.staging.FinalDir(), fetchedAt)
}

// SnapshotPath returns the archive file for a fetch time under dir.
func SnapshotPath(dir string, fetchedAt time.Time) string {
	utc := fetchedAt.UTC()
	return filepath.Join(dir, utc.Format(dateLayout), fmt.Sprintf("%s%d%s", filePrefix, utc.Unix(), fileSuffix))
}

// Record implements market.Recorder.
func (r *Recorder) Record(ctx context.Context, resp *orderbook.Response, fetchedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal order book: %w", err)
	}
	compressed := r.encoder.EncodeAll(raw, nil)

	path := r.Path(fetchedAt)
	size, err := r.staging.WriteAtomic(path, func(w io.Writer) (int64, error) {
		return bytes.NewReader(compressed).WriteTo(w)
	})
	if err != nil {
		return fmt.Errorf("archiving order book: %w", err)
	}

	r.logger.Debug("archived order book",
		zap.String("path", path),
		zap.Int("rawSize", len(raw)),
		zap.Int64("compressedSize", size),
	)
	return nil
}

// Close releases encoder resources.
func (r *Recorder) Close() {
	if r.encoder != nil {
		r.encoder.Close()
	}
}
