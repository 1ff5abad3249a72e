package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
)

// FeeDirectory holds students and fee structures in memory. Seed it with AddStudent and AddFeeStructure.
type FeeDirectory struct {
	mu         sync.Mutex
	students   map[string]domain.Student
	structures map[string]domain.FeeStructure
}

// NewFeeDirectory creates an empty directory.
func NewFeeDirectory() *FeeDirectory {
	return &FeeDirectory{
		students:   make(map[string]domain.Student),
		structures: make(map[string]domain.FeeStructure),
	}
}

var _ portsrepo.FeeDirectory = (*FeeDirectory)(nil)

func structureKey(schoolID, classID, sessionID, termID string) string {
	return schoolID + "|" + classID + "|" + sessionID + "|" + termID
}

// AddStudent registers or replaces a student.
func (d *FeeDirectory) AddStudent(s domain.Student) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students[s.StudentID] = s
}

// AddFeeStructure registers or replaces the structure of a class for one term.
func (d *FeeDirectory) AddFeeStructure(fs domain.FeeStructure) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fs.Lines = append([]domain.FeeLine(nil), fs.Lines...)
	d.structures[structureKey(fs.SchoolID, fs.ClassID, fs.SessionID, fs.TermID)] = fs
}

func (d *FeeDirectory) ListStudentsByClass(ctx context.Context, schoolID, classID string) ([]domain.Student, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []domain.Student
	for _, s := range d.students {
		if s.SchoolID == schoolID && s.ClassID == classID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

func (d *FeeDirectory) FindFeeStructure(ctx context.Context, schoolID, classID, sessionID, termID string) (*domain.FeeStructure, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fs, ok := d.structures[structureKey(schoolID, classID, sessionID, termID)]
	if !ok {
		return nil, fmt.Errorf("%w: fee structure for class %s", apperrors.ErrNotFound, classID)
	}
	fs.Lines = append([]domain.FeeLine(nil), fs.Lines...)
	return &fs, nil
}
