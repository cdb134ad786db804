package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/services"
)

// ReportHandler serves financial summaries.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GetSummary handles summarizing an arbitrary window.
// @Summary     Financial summary
// @Description Totals, per-category breakdowns and goal progress for a window
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       start query string true "Start (RFC 3339 or YYYY-MM-DD)"
// @Param       end   query string true "End, inclusive (RFC 3339 or YYYY-MM-DD)"
// @Success     200 {object} services.FinancialSummary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid window"
// @Router      /reports/summary [get]
func (h *ReportHandler) GetSummary(c *gin.Context) {
	start, end, err := windowQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.reportService.GetSummary(start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetCurrentMonthSummary handles summarizing the month to date.
// @Summary     Current month summary
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.FinancialSummary "Summary"
// @Router      /reports/summary/current-month [get]
func (h *ReportHandler) GetCurrentMonthSummary(c *gin.Context) {
	summary, err := h.reportService.GetCurrentMonthSummary()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetLastMonthSummary handles summarizing the previous calendar month.
// @Summary     Last month summary
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.FinancialSummary "Summary"
// @Router      /reports/summary/last-month [get]
func (h *ReportHandler) GetLastMonthSummary(c *gin.Context) {
	summary, err := h.reportService.GetLastMonthSummary()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetLastDaysSummary handles summarizing the trailing n days.
// @Summary     Last N days summary
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       days path int true "Number of days"
// @Success     200 {object} services.FinancialSummary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid days"
// @Router      /reports/summary/last-days/{days} [get]
func (h *ReportHandler) GetLastDaysSummary(c *gin.Context) {
	days, err := strconv.Atoi(c.Param("days"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid days"))
		return
	}

	summary, err := h.reportService.GetLastNDaysSummary(days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
