package dto

import (
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FeeLineRequest is one fee line of a fees payment.
type FeeLineRequest struct {
	FeeLineID string          `json:"feeLineID" binding:"required" validate:"required"`
	Paid      decimal.Decimal `json:"paid"`
	Fine      decimal.Decimal `json:"fine"`
	Discount  decimal.Decimal `json:"discount"`
}

// PostEntryRequest carries the fields of every entry kind. Fields a kind does not use are ignored.
type PostEntryRequest struct {
	AccountID   string             `json:"accountID"` // Optional
	SessionID   string             `json:"sessionID" binding:"required" validate:"required"`
	TermID      string             `json:"termID" binding:"required" validate:"required"`
	Amount      decimal.Decimal    `json:"amount"`
	PostedAt    *time.Time         `json:"postedAt"` // Defaults to now
	Status      domain.EntryStatus `json:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED REFUNDED" validate:"omitempty,oneof=PENDING COMPLETED FAILED REFUNDED"`
	Description string             `json:"description"`
	StudentID   string             `json:"studentID"`
	ClassID     string             `json:"classID"`
	Category    string             `json:"category"`
	Reference   string             `json:"reference"`
	FeeLines    []FeeLineRequest   `json:"feeLines" binding:"omitempty,dive" validate:"omitempty,dive"`
}

// EditEntryRequest lists the editable fields. Omitted fields stay unchanged.
type EditEntryRequest struct {
	Amount      *decimal.Decimal    `json:"amount"`
	PostedAt    *time.Time          `json:"postedAt"`
	Status      *domain.EntryStatus `json:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED REFUNDED" validate:"omitempty,oneof=PENDING COMPLETED FAILED REFUNDED"`
	Description *string             `json:"description"`
	FeeLines    []FeeLineRequest    `json:"feeLines" binding:"omitempty,dive" validate:"omitempty,dive"`
}

// ToFeeLinePayments converts request fee lines to domain values.
func ToFeeLinePayments(lines []FeeLineRequest) []domain.FeeLinePayment {
	if lines == nil {
		return nil
	}
	out := make([]domain.FeeLinePayment, len(lines))
	for i, l := range lines {
		out[i] = domain.FeeLinePayment{
			FeeLineID: l.FeeLineID,
			Paid:      l.Paid,
			Fine:      l.Fine,
			Discount:  l.Discount,
		}
	}
	return out
}

// ToPatch converts the request into a domain.EntryPatch.
func (r EditEntryRequest) ToPatch() domain.EntryPatch {
	return domain.EntryPatch{
		Amount:      r.Amount,
		PostedAt:    r.PostedAt,
		Status:      r.Status,
		Description: r.Description,
		FeeLines:    ToFeeLinePayments(r.FeeLines),
	}
}

// EntryResponse defines the data returned for a ledger entry.
type EntryResponse struct {
	EntryID       string                  `json:"entryID"`
	Kind          domain.EntryKind        `json:"kind"`
	AccountID     string                  `json:"accountID,omitempty"`
	SessionID     string                  `json:"sessionID"`
	TermID        string                  `json:"termID"`
	Amount        decimal.Decimal         `json:"amount"`
	PostedAt      time.Time               `json:"postedAt"`
	Status        domain.EntryStatus      `json:"status"`
	TransactionID string                  `json:"transactionID,omitempty"`
	Description   string                  `json:"description,omitempty"`
	StudentID     string                  `json:"studentID,omitempty"`
	ClassID       string                  `json:"classID,omitempty"`
	Category      string                  `json:"category,omitempty"`
	Reference     string                  `json:"reference,omitempty"`
	FeeLines      []domain.FeeLinePayment `json:"feeLines,omitempty"`
	ActionType    domain.ActionType       `json:"actionType"`
	CreatedAt     time.Time               `json:"createdAt"`
	CreatedBy     string                  `json:"createdBy"`
	LastUpdatedAt time.Time               `json:"lastUpdatedAt"`
	LastUpdatedBy string                  `json:"lastUpdatedBy"`
}

// ToEntryResponse converts a domain.LedgerEntry to EntryResponse DTO.
func ToEntryResponse(e *domain.LedgerEntry) EntryResponse {
	return EntryResponse{
		EntryID:       e.EntryID,
		Kind:          e.Kind,
		AccountID:     e.AccountID,
		SessionID:     e.SessionID,
		TermID:        e.TermID,
		Amount:        e.Amount,
		PostedAt:      e.PostedAt,
		Status:        e.Status,
		TransactionID: e.TransactionID,
		Description:   e.Description,
		StudentID:     e.StudentID,
		ClassID:       e.ClassID,
		Category:      e.Category,
		Reference:     e.Reference,
		FeeLines:      e.FeeLines,
		ActionType:    e.ActionType,
		CreatedAt:     e.CreatedAt,
		CreatedBy:     e.CreatedBy,
		LastUpdatedAt: e.LastUpdatedAt,
		LastUpdatedBy: e.LastUpdatedBy,
	}
}

// ToEntryResponses converts a slice of domain.LedgerEntry to []EntryResponse.
func ToEntryResponses(entries []domain.LedgerEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = ToEntryResponse(&e)
	}
	return responses
}
