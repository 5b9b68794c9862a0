package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// ErrEmpty is returned when the archive holds no snapshots.
var ErrEmpty = errors.New("no archived order books")

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FileClient serves the newest archived book in place of the live API.
type FileClient struct {
	dir     string
	decoder *zstd.Decoder
	logger  *zap.Logger
}

func NewFileClient(dir string, logger *zap.Logger) (*FileClient, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &FileClient{dir: dir, decoder: dec, logger: logger}, nil
}

// FetchBook implements api.Client.
func (c *FileClient) FetchBook(ctx context.Context) (*orderbook.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := c.Latest()
	if err != nil {
		return nil, err
	}
	return c.Load(path)
}

// Load decodes one archive file.
func (c *FileClient) Load(path string) (*orderbook.Response, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	raw, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", filepath.Base(path), err)
	}

	var resp orderbook.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	c.logger.Debug("loaded archived order book",
		zap.String("path", path),
		zap.Int("orders", len(resp.Data.Orders)),
	)
	return &resp, nil
}

// Latest returns the newest snapshot file, scanning date folders newest first.
func (c *FileClient) Latest() (string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return "", fmt.Errorf("reading archive directory: %w", err)
	}

	var dates []string
	for _, entry := range entries {
		if entry.IsDir() && datePattern.MatchString(entry.Name()) {
			dates = append(dates, entry.Name())
		}
	}

	// YYYY-MM-DD sorts lexicographically
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	for _, date := range dates {
		files, err := os.ReadDir(filepath.Join(c.dir, date))
		if err != nil {
			continue
		}

		var newest string
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
				continue
			}
			// Equal-width unix timestamps also sort lexicographically
			if name > newest {
				newest = name
			}
		}
		if newest != "" {
			return filepath.Join(c.dir, date, newest), nil
		}
	}

	return "", fmt.Errorf("%w in %s", ErrEmpty, c.dir)
}

// Close releases decoder resources.
func (c *FileClient) Close() {
	c.decoder.Close()
}
