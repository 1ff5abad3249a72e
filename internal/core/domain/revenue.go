package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BucketKey identifies one RevenueSummary row.
type BucketKey struct {
	SchoolID   string    `json:"schoolID"`
	SessionID  string    `json:"sessionID"`
	TermID     string    `json:"termID"`
	MonthStart time.Time `json:"monthStart"`
}

// MonthStart truncates t to midnight UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NewBucketKey builds the bucket for an entry posted at postedAt.
func NewBucketKey(schoolID, sessionID, termID string, postedAt time.Time) BucketKey {
	return BucketKey{
		SchoolID:   schoolID,
		SessionID:  sessionID,
		TermID:     termID,
		MonthStart: MonthStart(postedAt),
	}
}

// Equal compares two keys, normalising the month.
func (b BucketKey) Equal(o BucketKey) bool {
	return b.SchoolID == o.SchoolID && b.SessionID == o.SessionID && b.TermID == o.TermID &&
		MonthStart(b.MonthStart).Equal(MonthStart(o.MonthStart))
}

func (b BucketKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", b.SchoolID, b.SessionID, b.TermID, b.MonthStart.Format("2006-01"))
}

// RevenueSummary is the materialised running total for one bucket.
type RevenueSummary struct {
	SummaryID    string          `json:"summaryID"`
	BucketKey                    // Unique
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
