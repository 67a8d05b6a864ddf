package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/model"
	"github.com/fleveque/chart-service/internal/service"
)

// UploadHandler accepts externally supplied chart images. Identity is
// derived entirely from the uploaded filename, which must be a storage key
// like AAPL_chart.png.
type UploadHandler struct {
	validator *service.UploadValidator
	logger    *zap.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(validator *service.UploadValidator, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{validator: validator, logger: logger}
}

// uploadOutcome is the per-file result of a batch upload.
type uploadOutcome struct {
	Filename string `json:"filename"`
	OK       bool   `json:"ok"`
	Symbol   string `json:"symbol,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Upload accepts a single chart image as multipart form data (field "file").
// Route: POST /api/v1/upload
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	outcome := h.accept(c, file)
	if !outcome.OK {
		h.logger.Warn("upload rejected",
			zap.String("filename", file.Filename),
			zap.String("reason", outcome.Error),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": outcome.Error})
		return
	}

	c.JSON(http.StatusCreated, outcome)
}

// UploadBatch accepts several chart images (field "files") and returns one
// outcome per file, mirroring the batch fetch contract: a bad file is
// recorded, the rest still commit.
// Route: POST /api/v1/upload-batch
func (h *UploadHandler) UploadBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	outcomes := make([]uploadOutcome, 0, len(files))
	for _, file := range files {
		outcomes = append(outcomes, h.accept(c, file))
	}

	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

// accept reads one multipart file and runs it through the validator.
func (h *UploadHandler) accept(c *gin.Context, file *multipart.FileHeader) uploadOutcome {
	outcome := uploadOutcome{Filename: file.Filename}

	src, err := file.Open()
	if err != nil {
		outcome.Error = "reading upload: " + err.Error()
		return outcome
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, 10<<20))
	if err != nil {
		outcome.Error = "reading upload: " + err.Error()
		return outcome
	}

	contentType := file.Header.Get("Content-Type")
	symbol, err := h.validator.Accept(c.Request.Context(), file.Filename, contentType, data)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.OK = true
	outcome.Symbol = symbol
	outcome.URL = "/static/" + model.StorageKey(symbol)
	return outcome
}
