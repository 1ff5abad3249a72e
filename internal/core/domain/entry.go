package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind identifies one of the concrete ledger entry variants.
type EntryKind string

const (
	KindDeposit      EntryKind = "DEPOSIT"
	KindExpense      EntryKind = "EXPENSE"
	KindFeesPayment  EntryKind = "FEES_PAYMENT"
	KindClassPayment EntryKind = "CLASS_PAYMENT"
	KindMealPayment  EntryKind = "MEAL_PAYMENT"
)

// AllEntryKinds lists every variant in a stable order.
var AllEntryKinds = []EntryKind{KindDeposit, KindExpense, KindFeesPayment, KindClassPayment, KindMealPayment}

var kindSlugs = map[string]EntryKind{
	"deposits":       KindDeposit,
	"expenses":       KindExpense,
	"fees-payments":  KindFeesPayment,
	"class-payments": KindClassPayment,
	"meal-payments":  KindMealPayment,
}

// ParseEntryKind accepts either the constant form ("FEES_PAYMENT") or the URL slug ("fees-payments").
func ParseEntryKind(s string) (EntryKind, error) {
	if k, ok := kindSlugs[strings.ToLower(s)]; ok {
		return k, nil
	}
	k := EntryKind(strings.ToUpper(s))
	if k.IsValid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown entry kind %q", s)
}

// IsValid reports whether k is a known variant.
func (k EntryKind) IsValid() bool {
	switch k {
	case KindDeposit, KindExpense, KindFeesPayment, KindClassPayment, KindMealPayment:
		return true
	}
	return false
}

// IsPayment reports whether k is one of the student payment variants, which carry a
// status lifecycle and a transaction id.
func (k EntryKind) IsPayment() bool {
	return k == KindFeesPayment || k == KindClassPayment || k == KindMealPayment
}

// Slug returns the URL form of the kind.
func (k EntryKind) Slug() string {
	for slug, kind := range kindSlugs {
		if kind == k {
			return slug
		}
	}
	return strings.ToLower(string(k))
}

// EntryStatus is the lifecycle state of an entry. Only COMPLETED entries contribute to totals.
type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusCompleted EntryStatus = "COMPLETED"
	StatusFailed    EntryStatus = "FAILED"
	StatusRefunded  EntryStatus = "REFUNDED"
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Counts reports whether an entry in this status contributes to balances and revenue.
func (s EntryStatus) Counts() bool {
	return s == StatusCompleted
}

// IsTerminal reports whether no further edits are accepted once an entry reaches s.
func (s EntryStatus) IsTerminal() bool {
	return s == StatusFailed || s == StatusRefunded
}

// CanMoveTo reports whether an entry in status s may be edited to next. A counted entry
// only leaves COMPLETED for a terminal status, so a contribution that was withdrawn never returns.
func (s EntryStatus) CanMoveTo(next EntryStatus) bool {
	switch {
	case s == next:
		return true
	case s.IsTerminal():
		return false
	case s.Counts():
		return next.IsTerminal()
	}
	return true
}

// ActionType is the last mutation applied to an entry, mirrored into audit records.
type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
)

// FeeLinePayment is the amount paid against one line of a class fee structure.
// Fine and Discount are informational and never aggregated.
type FeeLinePayment struct {
	FeeLineID string          `json:"feeLineID"`
	Paid      decimal.Decimal `json:"paid"`
	Fine      decimal.Decimal `json:"fine"`
	Discount  decimal.Decimal `json:"discount"`
}

// LedgerEntry is a single financial event. Variant-specific fields are left empty
// for kinds that do not use them.
type LedgerEntry struct {
	EntryID       string          `json:"entryID"`
	Kind          EntryKind       `json:"kind"`
	SchoolID      string          `json:"schoolID"`
	AccountID     string          `json:"accountID,omitempty"` // Empty when not tied to a cash account
	SessionID     string          `json:"sessionID"`
	TermID        string          `json:"termID"`
	Amount        decimal.Decimal `json:"amount"`   // Unsigned magnitude
	PostedAt      time.Time       `json:"postedAt"` // Decides the monthly bucket
	Status        EntryStatus     `json:"status"`
	TransactionID string          `json:"transactionID,omitempty"`
	Description   string          `json:"description,omitempty"`

	// Payment variants
	StudentID string           `json:"studentID,omitempty"`
	ClassID   string           `json:"classID,omitempty"`
	FeeLines  []FeeLinePayment `json:"feeLines,omitempty"`

	// Expense / Deposit
	Category  string `json:"category,omitempty"`
	Reference string `json:"reference,omitempty"`

	ActionType ActionType `json:"actionType"`
	ModFlag    bool       `json:"modFlag"`
	DelFlag    bool       `json:"delFlag"`
	AuditFields
}

// HasAccount reports whether the entry is posted against a cash account.
func (e LedgerEntry) HasAccount() bool {
	return e.AccountID != ""
}

// Contribution is the signed amount the entry adds to balances and revenue.
func (e LedgerEntry) Contribution() decimal.Decimal {
	if !e.Status.Counts() || e.DelFlag {
		return decimal.Zero
	}
	if e.Kind == KindExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Bucket returns the revenue summary key the entry falls into.
func (e LedgerEntry) Bucket() BucketKey {
	return NewBucketKey(e.SchoolID, e.SessionID, e.TermID, e.PostedAt)
}

// FeeLinesPaid sums the Paid column of the fee lines.
func (e LedgerEntry) FeeLinesPaid() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.FeeLines {
		total = total.Add(l.Paid)
	}
	return total
}

// EntryPatch lists the fields editable after posting. Nil means unchanged.
type EntryPatch struct {
	Amount      *decimal.Decimal
	PostedAt    *time.Time
	Status      *EntryStatus
	Description *string
	FeeLines    []FeeLinePayment
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Amount == nil && p.PostedAt == nil && p.Status == nil && p.Description == nil && p.FeeLines == nil
}

// Apply returns a copy of e with the patch applied.
func (e LedgerEntry) Apply(p EntryPatch) LedgerEntry {
	out := e
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.PostedAt != nil {
		out.PostedAt = *p.PostedAt
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.FeeLines != nil {
		out.FeeLines = append([]FeeLinePayment(nil), p.FeeLines...)
		if p.Amount == nil {
			out.Amount = out.FeeLinesPaid()
		}
	}
	return out
}
