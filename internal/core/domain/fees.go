package domain

import "github.com/shopspring/decimal"

// Student is the minimal student view needed for fee reporting.
type Student struct {
	StudentID string `json:"studentID"`
	SchoolID  string `json:"schoolID"`
	ClassID   string `json:"classID"`
	FullName  string `json:"fullName"`
}

// FeeLine is one billable item of a class fee structure.
type FeeLine struct {
	FeeLineID string          `json:"feeLineID"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// FeeStructure lists what a class owes for a session and term.
type FeeStructure struct {
	StructureID string    `json:"structureID"`
	SchoolID    string    `json:"schoolID"`
	ClassID     string    `json:"classID"`
	SessionID   string    `json:"sessionID"`
	TermID      string    `json:"termID"`
	Lines       []FeeLine `json:"lines"`
}

// FeeStatus classifies a student's payment progress against a fee structure.
type FeeStatus string

const (
	FeeUnpaid     FeeStatus = "UNPAID"
	FeePartlyPaid FeeStatus = "PARTLY_PAID"
	FeeFullyPaid  FeeStatus = "FULLY_PAID"
)

// StudentFeeStatus is one row of the class fee status report.
type StudentFeeStatus struct {
	Student   Student         `json:"student"`
	Status    FeeStatus       `json:"status"`
	TotalDue  decimal.Decimal `json:"totalDue"`
	TotalPaid decimal.Decimal `json:"totalPaid"`
}
