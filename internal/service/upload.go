package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/model"
	"github.com/fleveque/chart-service/internal/storage"
)

// ErrInvalidUpload is returned when an uploaded chart fails validation
// (wrong content type, or a filename that isn't a chart storage key).
var ErrInvalidUpload = errors.New("invalid chart upload")

// uploadContentType is the only accepted image type. Charts are PNGs
// end to end; accepting anything else would poison the cache.
const uploadContentType = "image/png"

// UploadValidator is the independent ingest path: externally supplied chart
// images are validated and committed straight to the file backend, no
// upstream fetch involved. Identity comes from the uploaded filename, which
// must already be a storage key (e.g. AAPL_chart.png).
type UploadValidator struct {
	files  *storage.FileStore
	logger *zap.Logger
}

// NewUploadValidator creates the upload path over the file backend.
func NewUploadValidator(files *storage.FileStore, logger *zap.Logger) *UploadValidator {
	return &UploadValidator{files: files, logger: logger}
}

// Accept validates an uploaded chart and commits it, returning the derived
// symbol for the caller to build a public reference. Validation runs before
// any write, so a rejected upload leaves nothing behind — no file, no
// orphaned temp bytes.
func (v *UploadValidator) Accept(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if contentType != uploadContentType {
		return "", fmt.Errorf("%w: content type %q, want %s", ErrInvalidUpload, contentType, uploadContentType)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrInvalidUpload)
	}

	symbol, err := model.SymbolFromKey(filename)
	if err != nil {
		return "", fmt.Errorf("%w: filename %q is not a chart key", ErrInvalidUpload, filename)
	}

	result, err := v.files.Put(ctx, symbol, data)
	if err != nil {
		return "", fmt.Errorf("storing uploaded chart for %s: %w", symbol, err)
	}

	v.logger.Info("chart uploaded",
		zap.String("symbol", symbol),
		zap.String("result", string(result)),
		zap.Int("bytes", len(data)),
	)
	return symbol, nil
}
