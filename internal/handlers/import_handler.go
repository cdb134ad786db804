package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/logger"
	"finmanager/internal/services"
)

// maxImportSize caps the accepted CSV upload.
const maxImportSize = 10 << 20

// ImportHandler handles bulk transaction imports.
type ImportHandler struct {
	importService services.ImportServicer
	auditService  services.AuditServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportServicer, auditService services.AuditServicer) *ImportHandler {
	return &ImportHandler{importService: importService, auditService: auditService}
}

// ImportTransactions handles a CSV upload.
// @Summary     Import transactions from CSV
// @Description Rows are date,amount,description[,category[,type]]. Each line is imported on its own; failures are reported per line.
// @Tags        import
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file                formData file   true  "CSV file"
// @Param       default_category_id formData string false "Category for rows whose category does not exist"
// @Success     200 {object} services.ImportResult "Import result"
// @Failure     400 {object} ErrorResponse "Missing or unreadable file"
// @Failure     404 {object} ErrorResponse "Default category not found"
// @Router      /import/transactions [post]
func (h *ImportHandler) ImportTransactions(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	header, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInput, "could not open uploaded file"), err))
		return
	}
	defer file.Close()

	var defaultCategoryID *string
	if v := c.PostForm("default_category_id"); v != "" {
		defaultCategoryID = &v
	} else if v := c.Query("default_category_id"); v != "" {
		defaultCategoryID = &v
	}

	result, err := h.importService.ImportCSV(c.Request.Context(), file, defaultCategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Get().Infow("transactions imported",
		"file", header.Filename,
		"size", header.Size,
		"success_count", result.SuccessCount,
		"failure_count", len(result.Failures),
	)
	h.auditService.Log("IMPORT_TRANSACTIONS", "transaction", "", c.ClientIP(),
		map[string]interface{}{
			"file":            header.Filename,
			"success_count":   result.SuccessCount,
			"duplicate_count": result.DuplicateCount,
			"failure_count":   len(result.Failures),
		})

	c.JSON(http.StatusOK, result)
}
