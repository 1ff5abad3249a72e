package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a row of one of the per-kind entry tables. All five tables share this layout.
type LedgerEntry struct {
	EntryID       string          `db:"entry_id"`
	SchoolID      string          `db:"school_id"`
	AccountID     sql.NullString  `db:"account_id"`
	SessionID     string          `db:"session_id"`
	TermID        string          `db:"term_id"`
	Amount        decimal.Decimal `db:"amount"`
	PostedAt      time.Time       `db:"posted_at"`
	Status        string          `db:"status"`
	TransactionID sql.NullString  `db:"transaction_id"` // Unique per table when set
	Description   string          `db:"description"`
	StudentID     string          `db:"student_id"`
	ClassID       string          `db:"class_id"`
	FeeLines      []byte          `db:"fee_lines"` // JSONB
	Category      string          `db:"category"`
	Reference     string          `db:"reference"`
	ActionType    string          `db:"action_type"`
	ModFlag       bool            `db:"mod_flag"`
	DelFlag       bool            `db:"del_flag"`
	AuditFields
}
