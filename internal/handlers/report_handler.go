package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tally/internal/errors"
	"tally/internal/pagination"
	"tally/internal/services"
)

// reportCounter observes rendered reports. *middleware.Metrics implements it.
type reportCounter interface {
	ReportRendered(kind string)
}

// ReportHandler handles report preview, generation and download requests.
type ReportHandler struct {
	reportService services.ReportServicer
	auditService  services.AuditServicer
	counter       reportCounter
	maxPageSize   int
}

// NewReportHandler creates a new ReportHandler. counter may be nil.
func NewReportHandler(reportService services.ReportServicer, auditService services.AuditServicer, counter reportCounter, maxPageSize int) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		auditService:  auditService,
		counter:       counter,
		maxPageSize:   maxPageSize,
	}
}

// ReportRequest selects the expenses of a report.
type ReportRequest struct {
	ReportType string `json:"report_type" binding:"omitempty,report_type" example:"all"`
	StartDate  string `json:"start_date" binding:"required" example:"2024-01-01"`
	EndDate    string `json:"end_date" binding:"required" example:"2024-01-31"`
}

// ReportPreviewResponse is the preview envelope: the snapshot id, the
// normalized filters, the matching expenses and their summary.
type ReportPreviewResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	ID      string                 `json:"id"`
	Filters services.ReportFilters `json:"filters"`
	Summary services.Summary       `json:"summary"`
	Data    interface{}            `json:"data"`
}

// PreviewReport returns report data and stores a snapshot
// @Summary     Preview a report
// @Description Select expenses by type and inclusive date range, store a snapshot and return the data with its summary
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       request body ReportRequest true "Report criteria"
// @Success     200 {object} ReportPreviewResponse "Report preview"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/preview [post]
func (h *ReportHandler) PreviewReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	criteria, err := bindReportCriteria(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	preview, err := h.reportService.PreviewReport(c.Request.Context(), userID, criteria)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditActionCreateReport, "report", preview.ReportID, c.ClientIP(),
		map[string]interface{}{"report_type": preview.Filters.ReportType, "expense_count": preview.Summary.TotalCount})

	c.JSON(http.StatusOK, ReportPreviewResponse{
		Success: true,
		Message: "Report data fetched successfully",
		ID:      preview.ReportID,
		Filters: preview.Filters,
		Summary: preview.Summary,
		Data:    preview.Expenses,
	})
}

// GenerateReport renders a fresh PDF and stores a snapshot
// @Summary     Generate a PDF report
// @Description Select expenses, store a snapshot and download it as PDF. The snapshot id is returned in X-Report-ID.
// @Tags        reports
// @Accept      json
// @Produce     application/pdf
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       request body ReportRequest true "Report criteria"
// @Success     200 {file} binary "PDF document"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Report generation failed"
// @Router      /reports/pdf [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	criteria, err := bindReportCriteria(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rendered, err := h.reportService.GenerateReport(c.Request.Context(), userID, criteria)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditActionCreateReport, "report", rendered.ReportID, c.ClientIP(),
		map[string]interface{}{"format": "pdf"})
	h.sendDocument(c, rendered, "fresh")
}

// ListReports returns the user's report history
// @Summary     List report snapshots
// @Description Most recent first
// @Tags        reports
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       page  query int false "Page number (default 1)"
// @Param       limit query int false "Page size (default 10, capped)"
// @Success     200 {object} pagination.PageResponse[models.Report] "Report snapshots"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	page.Normalize(h.maxPageSize)

	result, err := h.reportService.ListReports(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondPage(c, http.StatusOK, "Reports fetched successfully", result)
}

// DownloadReport re-renders a stored snapshot
// @Summary     Download a stored report
// @Description Render a snapshot from the expenses it references that still exist
// @Tags        reports
// @Produce     application/pdf
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {file} binary "PDF document"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Report or user not found"
// @Failure     500 {object} ErrorResponse "Report generation failed"
// @Router      /reports/{id}/pdf [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rendered, err := h.reportService.MaterializeReport(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.sendDocument(c, rendered, "snapshot")
}

func (h *ReportHandler) sendDocument(c *gin.Context, rendered *services.RenderedReport, kind string) {
	if h.counter != nil {
		h.counter.ReportRendered(kind)
	}
	c.Header("X-Report-ID", rendered.ReportID)
	c.Header("Content-Length", strconv.Itoa(len(rendered.Content)))
	c.Header("Content-Disposition", contentDisposition(rendered.Filename))
	c.Data(http.StatusOK, rendered.ContentType, rendered.Content)
}

// contentDisposition quotes or RFC 2231-encodes filename as needed, so owner
// names with separators or non-ASCII characters still yield a valid header.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func bindReportCriteria(c *gin.Context) (services.ReportCriteria, error) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return services.ReportCriteria{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	start, err := parseFlexibleTime(req.StartDate)
	if err != nil {
		return services.ReportCriteria{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	end, err := parseRangeEnd(req.EndDate)
	if err != nil {
		return services.ReportCriteria{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	return services.ReportCriteria{
		ReportType: req.ReportType,
		StartDate:  &start,
		EndDate:    &end,
	}, nil
}
