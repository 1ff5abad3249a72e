package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationKind says which derived value a task repairs.
type ReconciliationKind string

const (
	ReconcileBucket  ReconciliationKind = "BUCKET"
	ReconcileAccount ReconciliationKind = "ACCOUNT"
)

// ReconciliationStatus tracks task progress.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "PENDING"
	ReconciliationResolved ReconciliationStatus = "RESOLVED"
)

// ReconciliationTask is queued whenever a post-commit pipeline step fails, so a later
// sweep can recompute the affected bucket or account balance from source entries.
type ReconciliationTask struct {
	TaskID         string               `json:"taskID"`
	Kind           ReconciliationKind   `json:"kind"`
	Bucket         BucketKey            `json:"bucket"`
	AccountID      string               `json:"accountID,omitempty"`
	EntryID        string               `json:"entryID"`
	AttemptedDelta decimal.Decimal      `json:"attemptedDelta"`
	Reason         string               `json:"reason"`
	Status         ReconciliationStatus `json:"status"`
	CreatedAt      time.Time            `json:"createdAt"`
	ResolvedAt     *time.Time           `json:"resolvedAt,omitempty"`
}
