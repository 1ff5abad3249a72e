package repositories

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
)

// FeeDirectory is the read-only view of students and class fee structures.
type FeeDirectory interface {
	ListStudentsByClass(ctx context.Context, schoolID, classID string) ([]domain.Student, error)

	// FindFeeStructure returns ErrNotFound when the class has no structure for the term.
	FindFeeStructure(ctx context.Context, schoolID, classID, sessionID, termID string) (*domain.FeeStructure, error)
}
