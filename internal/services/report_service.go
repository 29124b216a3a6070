package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"tally/internal/document"
	apperrors "tally/internal/errors"
	"tally/internal/logger"
	"tally/internal/models"
	"tally/internal/pagination"
	"tally/internal/uuid"
)

var whitespace = regexp.MustCompile(`\s+`)

// reportService handles report snapshots and their rendering.
type reportService struct {
	db       *gorm.DB
	renderer document.Renderer
	now      func() time.Time
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, renderer document.Renderer) ReportServicer {
	return &reportService{db: db, renderer: renderer, now: time.Now}
}

// normalizedCriteria is ReportCriteria after validation.
type normalizedCriteria struct {
	reportType string
	category   *models.ExpenseCategory
	start      time.Time
	end        time.Time
}

func normalizeCriteria(c ReportCriteria) (*normalizedCriteria, error) {
	if c.StartDate == nil || c.EndDate == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_date and end_date are required")
	}
	start, end := c.StartDate.UTC(), c.EndDate.UTC()
	if start.After(end) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_date must not be after end_date")
	}

	n := &normalizedCriteria{reportType: models.ReportTypeAll, start: start, end: end}
	reportType := strings.TrimSpace(c.ReportType)
	if reportType != "" && !strings.EqualFold(reportType, models.ReportTypeAll) {
		category, ok := models.ParseExpenseCategory(reportType)
		if !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "report_type must be 'all' or a valid category")
		}
		n.reportType = string(category)
		n.category = &category
	}
	return n, nil
}

// PreviewReport selects the matching expenses, stores a snapshot of the
// selection and returns the snapshot id together with the live data.
func (s *reportService) PreviewReport(ctx context.Context, userID string, criteria ReportCriteria) (*ReportPreview, error) {
	n, err := normalizeCriteria(criteria)
	if err != nil {
		return nil, err
	}

	report, expenses, err := s.createSnapshot(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}

	return &ReportPreview{
		ReportID: report.ID,
		Filters: ReportFilters{
			ReportType: n.reportType,
			StartDate:  n.start,
			EndDate:    n.end,
		},
		Expenses: expenses,
		Summary:  Summarize(expenses),
	}, nil
}

// GenerateReport stores a snapshot like PreviewReport and renders it.
func (s *reportService) GenerateReport(ctx context.Context, userID string, criteria ReportCriteria) (*RenderedReport, error) {
	n, err := normalizeCriteria(criteria)
	if err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	report, expenses, err := s.createSnapshot(ctx, userID, n)
	if err != nil {
		return nil, err
	}

	content, err := s.render(report, user, expenses, 0)
	if err != nil {
		return nil, err
	}

	return &RenderedReport{
		ReportID:    report.ID,
		Filename:    s.filename(user, s.now().UTC().Format("2006-01-02")),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}

// ListReports returns the user's snapshots, most recent first.
func (s *reportService) ListReports(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Report], error) {
	base := s.db.WithContext(ctx).Model(&models.Report{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reports []models.Report
	if err := base.Scopes(pagination.Paginate(page)).
		Order("generated_at DESC, id DESC").
		Find(&reports).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(reports, page.Page, page.Limit, totalItems)
	return &result, nil
}

// MaterializeReport renders a stored snapshot from the expenses it references
// that still exist. The document's totals are computed from those expenses.
func (s *reportService) MaterializeReport(ctx context.Context, userID, reportID string) (*RenderedReport, error) {
	if !uuid.IsValid(reportID) {
		return nil, apperrors.ErrReportNotFound
	}
	db := s.db.WithContext(ctx)

	var report models.Report
	if err := db.Preload("Entries").
		Where("id = ? AND user_id = ?", reportID, userID).
		First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := report.ExpenseIDs()
	expenses, err := s.resolveExpenses(db, userID, ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrReportGenerationFailed, err)
	}

	content, err := s.render(&report, user, expenses, len(ids)-len(expenses))
	if err != nil {
		return nil, err
	}

	return &RenderedReport{
		ReportID:    report.ID,
		Filename:    s.filename(user, report.ID),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}

// createSnapshot runs the selection and the snapshot insert in one
// transaction. PostgreSQL uses REPEATABLE READ so the stored ids and the
// frozen total come from the same consistent read.
func (s *reportService) createSnapshot(ctx context.Context, userID string, n *normalizedCriteria) (*models.Report, []models.Expense, error) {
	db := s.db.WithContext(ctx)

	var opts []*sql.TxOptions
	if db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	}

	var (
		report   *models.Report
		expenses []models.Expense
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		expenses, err = findExpenses(tx, userID, ExpenseFilter{
			Category:  n.category,
			StartDate: &n.start,
			EndDate:   &n.end,
			Sort:      SortDate,
		})
		if err != nil {
			return err
		}

		summary := Summarize(expenses)
		report = &models.Report{
			UserID:       userID,
			ReportType:   n.reportType,
			StartDate:    n.start,
			EndDate:      n.end,
			TotalAmount:  summary.TotalAmount,
			ExpenseCount: summary.TotalCount,
			GeneratedAt:  s.now().UTC(),
			Entries:      make([]models.ReportEntry, len(expenses)),
		}
		for i, e := range expenses {
			report.Entries[i] = models.ReportEntry{Position: i, ExpenseID: e.ID}
		}
		return tx.Create(report).Error
	}, opts...)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, nil, err
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("report snapshot created",
		"report_id", report.ID,
		"user_id", userID,
		"report_type", report.ReportType,
		"expense_count", report.ExpenseCount,
	)
	return report, expenses, nil
}

// resolveExpenses loads the owner's expenses with the given ids and returns
// them in the order of ids. Ids that no longer resolve are skipped.
func (s *reportService) resolveExpenses(db *gorm.DB, userID string, ids []string) ([]models.Expense, error) {
	if len(ids) == 0 {
		return []models.Expense{}, nil
	}

	var found []models.Expense
	if err := db.Where("user_id = ? AND id IN ?", userID, ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.Expense, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}
	ordered := make([]models.Expense, 0, len(found))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

func (s *reportService) findUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

func (s *reportService) render(report *models.Report, user *models.User, expenses []models.Expense, missing int) ([]byte, error) {
	summary := Summarize(expenses)
	doc := document.ReportDocument{
		ReportType:    report.ReportType,
		OwnerName:     user.Name,
		StartDate:     report.StartDate,
		EndDate:       report.EndDate,
		TotalAmount:   summary.TotalAmount,
		TotalCount:    summary.TotalCount,
		AverageAmount: summary.AverageAmount,
		MissingCount:  missing,
		Rows:          make([]document.Row, len(expenses)),
	}
	for i, e := range expenses {
		doc.Rows[i] = document.Row{
			Name:        e.Name,
			Amount:      e.Amount,
			Description: e.Description,
			Category:    string(e.Category),
			Vendor:      e.Vendor,
			Date:        e.Date,
		}
	}

	content, err := s.renderer.Render(doc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrReportGenerationFailed, err)
	}
	return content, nil
}

// filename builds "<Owner_Name>_report_<suffix>.<ext>".
func (s *reportService) filename(user *models.User, suffix string) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(user.Name), "_")
	return fmt.Sprintf("%s_report_%s.%s", name, suffix, s.renderer.Extension())
}
