package models

import (
	"time"

	"tally/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportTypeAll selects every category.
const ReportTypeAll = "all"

// Report is an immutable snapshot of a report request: its parameters, the
// total frozen at creation time and the ordered list of expenses it covered.
// No Base embed: snapshots are never updated.
type Report struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string          `gorm:"type:uuid;not null;index" json:"user_id"`
	ReportType   string          `gorm:"not null;default:all" json:"report_type"`
	StartDate    time.Time       `gorm:"not null" json:"start_date"`
	EndDate      time.Time       `gorm:"not null" json:"end_date"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric;not null" json:"total_amount"`
	ExpenseCount int             `gorm:"not null" json:"expense_count"`
	GeneratedAt  time.Time       `gorm:"not null;index" json:"generated_at"`
	Entries      []ReportEntry   `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New()
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}
	return nil
}

// ExpenseIDs returns the referenced expense ids in snapshot order.
func (r *Report) ExpenseIDs() []string {
	ids := make([]string, len(r.Entries))
	for _, e := range r.Entries {
		if e.Position >= 0 && e.Position < len(ids) {
			ids[e.Position] = e.ExpenseID
		}
	}
	return ids
}

// ReportEntry is one expense reference inside a report snapshot. ExpenseID
// carries no foreign key so that deleting an expense leaves the reference
// dangling instead of rewriting history.
type ReportEntry struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ReportID  string `gorm:"type:uuid;not null;uniqueIndex:idx_report_entries_position,priority:1" json:"report_id"`
	Position  int    `gorm:"not null;uniqueIndex:idx_report_entries_position,priority:2" json:"position"`
	ExpenseID string `gorm:"type:uuid;not null" json:"expense_id"`
}
