package handler

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/response"
	"github.com/stemsi/roster-backend/internal/service"
	"github.com/stemsi/roster-backend/internal/validator"
)

const (
	importField    = "csv_file"
	exportFilename = "students_export.csv"
)

// DataHandler serves bulk CSV import and export.
type DataHandler struct {
	importService  *service.ImportService
	exportService  *service.ExportService
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewDataHandler creates a new DataHandler.
func NewDataHandler(importService *service.ImportService, exportService *service.ExportService, maxUploadBytes int64, log zerolog.Logger) *DataHandler {
	return &DataHandler{
		importService:  importService,
		exportService:  exportService,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "data_handler").Logger(),
	}
}

// Import godoc
// POST /api/v1/data/import?skip_header=
// Accepts a multipart .csv upload in the csv_file field.
func (h *DataHandler) Import(c *gin.Context) {
	if err := h.importService.Authorize(middleware.GetIdentity(c)); err != nil {
		response.Error(c, h.log, err)
		return
	}

	opts := h.importService.Defaults()
	if raw := c.Query("skip_header"); raw != "" {
		skip, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"skip_header": "skip_header must be a boolean"})
			return
		}
		opts.SkipHeader = skip
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	file, header, err := c.Request.FormFile(importField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}

	report, err := h.importService.Import(c.Request.Context(), middleware.GetIdentity(c), file, opts)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// Export godoc
// GET /api/v1/data/export?q=&major_id=
// Streams the filtered roster as students_export.csv.
func (h *DataHandler) Export(c *gin.Context) {
	var q model.StudentQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Buffered so a failure can still produce a JSON error instead of a
	// truncated attachment.
	var buf bytes.Buffer
	if _, err := h.exportService.Export(c.Request.Context(), middleware.GetIdentity(c), q.Filter(), &buf); err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
