package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fleveque/chart-service/internal/model"
)

// FileStore keeps one chart file per symbol under a fixed directory, named
// via the storage key: {baseDir}/{SYMBOL}_chart.png. Freshness is read from
// the file's last-modified time instead of a stored column, so a chart
// written by the upload path and one written by the fetch path age the same
// way.
type FileStore struct {
	baseDir string
}

// Compile-time check that FileStore satisfies the store contract.
var _ ChartStore = (*FileStore)(nil)

// NewFileStore creates a FileStore, ensuring the base directory exists.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating chart directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the filesystem path for a symbol's chart.
func (fs *FileStore) Path(symbol string) string {
	return filepath.Join(fs.baseDir, model.StorageKey(symbol))
}

func (fs *FileStore) Get(ctx context.Context, symbol string) (*model.Chart, error) {
	path := fs.Path(symbol)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stating chart file for %s: %w", symbol, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chart file for %s: %w", symbol, err)
	}

	// The filesystem only keeps one timestamp we can rely on, so mtime
	// stands in for both created_at and updated_at.
	return &model.Chart{
		Symbol:    symbol,
		Image:     data,
		CreatedAt: info.ModTime(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Put writes the chart bytes to a temp file in the same directory and
// renames it into place. Rename is atomic on POSIX filesystems, so a
// concurrent reader sees either the old chart or the new one, never a
// partial write.
func (fs *FileStore) Put(ctx context.Context, symbol string, image []byte) (model.PutResult, error) {
	result := model.PutInserted
	if _, err := os.Stat(fs.Path(symbol)); err == nil {
		result = model.PutUpdated
	}

	tmp, err := os.CreateTemp(fs.baseDir, "."+symbol+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("staging chart file for %s: %w", symbol, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing chart file for %s: %w", symbol, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing chart file for %s: %w", symbol, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("setting chart file mode for %s: %w", symbol, err)
	}

	if err := os.Rename(tmpPath, fs.Path(symbol)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("committing chart file for %s: %w", symbol, err)
	}
	return result, nil
}

func (fs *FileStore) Exists(ctx context.Context, symbol string) (bool, error) {
	_, err := os.Stat(fs.Path(symbol))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stating chart file for %s: %w", symbol, err)
}

func (fs *FileStore) List(ctx context.Context) ([]model.ChartInfo, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing chart directory: %w", err)
	}

	var infos []model.ChartInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		// Skip temp files and anything else that isn't a storage key.
		symbol, err := model.SymbolFromKey(entry.Name())
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stating chart file %s: %w", entry.Name(), err)
		}
		infos = append(infos, model.ChartInfo{
			Symbol:    symbol,
			CreatedAt: info.ModTime(),
			UpdatedAt: info.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Symbol < infos[j].Symbol })
	return infos, nil
}

// Remove deletes a symbol's chart file. Used for cleanup of invalid
// uploads; idempotent — removing an absent chart is not an error.
func (fs *FileStore) Remove(ctx context.Context, symbol string) error {
	if err := os.Remove(fs.Path(symbol)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing chart file for %s: %w", symbol, err)
	}
	return nil
}
