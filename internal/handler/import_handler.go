package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/MedCatGit/catalog_api/internal/cache"
	"github.com/MedCatGit/catalog_api/internal/service"
	"github.com/MedCatGit/catalog_api/internal/utils"
	"github.com/MedCatGit/catalog_api/pkg/catalogfeed"
)

// ImportHandler exposes manual import control and pass reporting.
type ImportHandler struct {
	importService *service.ImportService
	reports       *cache.ReportCache
}

// NewImportHandler constructs an ImportHandler.
func NewImportHandler(importService *service.ImportService, reports *cache.ReportCache) *ImportHandler {
	return &ImportHandler{importService: importService, reports: reports}
}

// TriggerImport runs an import pass immediately. Returns 409 when a pass is
// already running.
func (h *ImportHandler) TriggerImport(c *gin.Context) {
	report, err := h.importService.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, utils.ErrPassInProgress) {
			utils.Error(c, 409, "PASS_IN_PROGRESS", "An import pass is already running")
			return
		}
		var decodeErr *catalogfeed.DecodeError
		if errors.As(err, &decodeErr) {
			utils.Error(c, 422, "DECODE_ERROR", decodeErr.Error())
			return
		}
		utils.Error(c, 500, "IMPORT_FAILED", "Import pass failed")
		return
	}

	utils.Success(c, 200, "Import pass completed", report)
}

// GetLastReport returns the report of the most recent completed pass.
func (h *ImportHandler) GetLastReport(c *gin.Context) {
	var report service.Report
	if err := h.reports.Load(c.Request.Context(), &report); err != nil {
		if errors.Is(err, utils.ErrNoReport) {
			utils.Error(c, 404, "NO_REPORT", "No import pass has completed yet")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load import report")
		return
	}

	utils.Success(c, 200, "Last import report", report)
}
