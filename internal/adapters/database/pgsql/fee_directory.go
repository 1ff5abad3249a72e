package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxFeeDirectory reads students and fee structures maintained by the school administration.
type PgxFeeDirectory struct {
	BaseRepository
}

func newPgxFeeDirectory(pool *pgxpool.Pool) *PgxFeeDirectory {
	return &PgxFeeDirectory{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.FeeDirectory = (*PgxFeeDirectory)(nil)

func (r *PgxFeeDirectory) ListStudentsByClass(ctx context.Context, schoolID, classID string) ([]domain.Student, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT student_id, school_id, class_id, full_name
		FROM students
		WHERE school_id = $1 AND class_id = $2
		ORDER BY full_name, student_id;
	`, schoolID, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students of class %s: %w", classID, err)
	}
	defer rows.Close()

	students := []domain.Student{}
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.StudentID, &s.SchoolID, &s.ClassID, &s.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan student row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}

func (r *PgxFeeDirectory) FindFeeStructure(ctx context.Context, schoolID, classID, sessionID, termID string) (*domain.FeeStructure, error) {
	fs := domain.FeeStructure{}
	err := r.Pool.QueryRow(ctx, `
		SELECT structure_id, school_id, class_id, session_id, term_id
		FROM fee_structures
		WHERE school_id = $1 AND class_id = $2 AND session_id = $3 AND term_id = $4;
	`, schoolID, classID, sessionID, termID).Scan(&fs.StructureID, &fs.SchoolID, &fs.ClassID, &fs.SessionID, &fs.TermID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: fee structure for class %s", apperrors.ErrNotFound, classID)
		}
		return nil, fmt.Errorf("failed to find fee structure for class %s: %w", classID, err)
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT fee_line_id, name, amount
		FROM fee_lines
		WHERE structure_id = $1
		ORDER BY position, fee_line_id;
	`, fs.StructureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee lines of structure %s: %w", fs.StructureID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.FeeLine
		if err := rows.Scan(&line.FeeLineID, &line.Name, &line.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan fee line row: %w", err)
		}
		fs.Lines = append(fs.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fee line rows: %w", err)
	}
	return &fs, nil
}
