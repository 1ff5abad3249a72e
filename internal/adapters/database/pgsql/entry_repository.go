package pgsql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/school_ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Each entry kind lives in its own table with a shared column layout.
var entryTables = map[domain.EntryKind]string{
	domain.KindDeposit:      "deposits",
	domain.KindExpense:      "expenses",
	domain.KindFeesPayment:  "fees_payments",
	domain.KindClassPayment: "class_payments",
	domain.KindMealPayment:  "meal_payments",
}

const entryColumns = `entry_id, school_id, account_id, session_id, term_id, amount, posted_at, status, transaction_id,
	description, student_id, class_id, fee_lines, category, reference, action_type, mod_flag, del_flag,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxEntryRepository struct {
	BaseRepository
}

func newPgxEntryRepository(pool *pgxpool.Pool) *PgxEntryRepository {
	return &PgxEntryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.EntryRepositoryFacade = (*PgxEntryRepository)(nil)

func tableFor(kind domain.EntryKind) (string, error) {
	table, ok := entryTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown entry kind %q", apperrors.ErrValidation, kind)
	}
	return table, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toModelEntry(d domain.LedgerEntry) (models.LedgerEntry, error) {
	var feeLines []byte
	if len(d.FeeLines) > 0 {
		b, err := json.Marshal(d.FeeLines)
		if err != nil {
			return models.LedgerEntry{}, fmt.Errorf("failed to encode fee lines: %w", err)
		}
		feeLines = b
	}
	return models.LedgerEntry{
		EntryID:       d.EntryID,
		SchoolID:      d.SchoolID,
		AccountID:     nullString(d.AccountID),
		SessionID:     d.SessionID,
		TermID:        d.TermID,
		Amount:        d.Amount,
		PostedAt:      d.PostedAt,
		Status:        string(d.Status),
		TransactionID: nullString(d.TransactionID),
		Description:   d.Description,
		StudentID:     d.StudentID,
		ClassID:       d.ClassID,
		FeeLines:      feeLines,
		Category:      d.Category,
		Reference:     d.Reference,
		ActionType:    string(d.ActionType),
		ModFlag:       d.ModFlag,
		DelFlag:       d.DelFlag,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}, nil
}

func toDomainEntry(kind domain.EntryKind, m models.LedgerEntry) (domain.LedgerEntry, error) {
	var feeLines []domain.FeeLinePayment
	if len(m.FeeLines) > 0 {
		if err := json.Unmarshal(m.FeeLines, &feeLines); err != nil {
			return domain.LedgerEntry{}, fmt.Errorf("failed to decode fee lines of entry %s: %w", m.EntryID, err)
		}
	}
	return domain.LedgerEntry{
		EntryID:       m.EntryID,
		Kind:          kind,
		SchoolID:      m.SchoolID,
		AccountID:     m.AccountID.String,
		SessionID:     m.SessionID,
		TermID:        m.TermID,
		Amount:        m.Amount,
		PostedAt:      m.PostedAt.UTC(),
		Status:        domain.EntryStatus(m.Status),
		TransactionID: m.TransactionID.String,
		Description:   m.Description,
		StudentID:     m.StudentID,
		ClassID:       m.ClassID,
		FeeLines:      feeLines,
		Category:      m.Category,
		Reference:     m.Reference,
		ActionType:    domain.ActionType(m.ActionType),
		ModFlag:       m.ModFlag,
		DelFlag:       m.DelFlag,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt.UTC(),
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt.UTC(),
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}, nil
}

// scanEntry reads one row. When withKind is set the first column is the kind literal
// added by cross-table queries.
func scanEntry(row pgx.Row, kind domain.EntryKind, withKind bool) (domain.LedgerEntry, error) {
	var m models.LedgerEntry
	dest := []any{
		&m.EntryID,
		&m.SchoolID,
		&m.AccountID,
		&m.SessionID,
		&m.TermID,
		&m.Amount,
		&m.PostedAt,
		&m.Status,
		&m.TransactionID,
		&m.Description,
		&m.StudentID,
		&m.ClassID,
		&m.FeeLines,
		&m.Category,
		&m.Reference,
		&m.ActionType,
		&m.ModFlag,
		&m.DelFlag,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	}
	var rowKind string
	if withKind {
		dest = append([]any{&rowKind}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.LedgerEntry{}, err
	}
	if withKind {
		kind = domain.EntryKind(rowKind)
	}
	return toDomainEntry(kind, m)
}

func (r *PgxEntryRepository) CreateEntry(ctx context.Context, entry domain.LedgerEntry) error {
	table, err := tableFor(entry.Kind)
	if err != nil {
		return err
	}
	m, err := toModelEntry(entry)
	if err != nil {
		return err
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	// Claim the transaction id first so it is unique across every kind table.
	if m.TransactionID.Valid {
		_, err = tx.Exec(ctx, `
			INSERT INTO payment_transactions (transaction_id, entry_kind, entry_id)
			VALUES ($1, $2, $3);
		`, m.TransactionID.String, string(entry.Kind), m.EntryID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: transaction id %s", apperrors.ErrDuplicate, m.TransactionID.String)
			}
			return fmt.Errorf("failed to claim transaction id %s: %w", m.TransactionID.String, err)
		}
	}

	query := `
		INSERT INTO ` + table + ` (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err = tx.Exec(ctx, query,
		m.EntryID,
		m.SchoolID,
		m.AccountID,
		m.SessionID,
		m.TermID,
		m.Amount,
		m.PostedAt,
		m.Status,
		m.TransactionID,
		m.Description,
		m.StudentID,
		m.ClassID,
		m.FeeLines,
		m.Category,
		m.Reference,
		m.ActionType,
		m.ModFlag,
		m.DelFlag,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: entry %s or transaction %s already exists", apperrors.ErrDuplicate, m.EntryID, m.TransactionID.String)
		}
		return fmt.Errorf("failed to insert entry %s into %s: %w", m.EntryID, table, err)
	}
	return r.Commit(ctx, tx)
}

func (r *PgxEntryRepository) FindEntryByID(ctx context.Context, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + entryColumns + ` FROM ` + table + ` WHERE entry_id = $1 AND NOT del_flag;`
	entry, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID), kind, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, kind, entryID)
		}
		return nil, fmt.Errorf("failed to find %s %s: %w", kind, entryID, err)
	}
	return &entry, nil
}

// lockLiveEntry selects a live entry FOR UPDATE inside tx.
func lockLiveEntry(ctx context.Context, tx pgx.Tx, table string, kind domain.EntryKind, entryID string) (domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ` + table + ` WHERE entry_id = $1 AND NOT del_flag FOR UPDATE;`
	entry, err := scanEntry(tx.QueryRow(ctx, query, entryID), kind, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entry, fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, kind, entryID)
		}
		return entry, fmt.Errorf("failed to lock %s %s: %w", kind, entryID, err)
	}
	return entry, nil
}

// writeMutable overwrites every column an edit, void or restore may change.
func writeMutable(ctx context.Context, q interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}, table string, e domain.LedgerEntry) (int64, error) {
	m, err := toModelEntry(e)
	if err != nil {
		return 0, err
	}
	query := `
		UPDATE ` + table + `
		SET amount = $2, posted_at = $3, status = $4, description = $5, fee_lines = $6,
		    action_type = $7, mod_flag = $8, del_flag = $9, last_updated_at = $10, last_updated_by = $11
		WHERE entry_id = $1;
	`
	tag, err := q.Exec(ctx, query,
		m.EntryID,
		m.Amount,
		m.PostedAt,
		m.Status,
		m.Description,
		m.FeeLines,
		m.ActionType,
		m.ModFlag,
		m.DelFlag,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgxEntryRepository) UpdateEntry(ctx context.Context, kind domain.EntryKind, entryID string, patch domain.EntryPatch, userID string, now time.Time) (*domain.LedgerEntry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	prev, err := lockLiveEntry(ctx, tx, table, kind, entryID)
	if err != nil {
		return nil, err
	}

	next := prev.Apply(patch)
	next.ActionType = domain.ActionUpdate
	next.ModFlag = true
	next.LastUpdatedAt = now
	next.LastUpdatedBy = userID
	if _, err := writeMutable(ctx, tx, table, next); err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", kind, entryID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &prev, nil
}

func (r *PgxEntryRepository) RestoreEntry(ctx context.Context, previous domain.LedgerEntry) error {
	table, err := tableFor(previous.Kind)
	if err != nil {
		return err
	}
	affected, err := writeMutable(ctx, r.Pool, table, previous)
	if err != nil {
		return fmt.Errorf("failed to restore %s %s: %w", previous.Kind, previous.EntryID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, previous.Kind, previous.EntryID)
	}
	return nil
}

func (r *PgxEntryRepository) DeleteEntry(ctx context.Context, kind domain.EntryKind, entryID string, userID string, now time.Time) (*domain.LedgerEntry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	prev, err := lockLiveEntry(ctx, tx, table, kind, entryID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE `+table+`
		SET del_flag = TRUE, action_type = $2, last_updated_at = $3, last_updated_by = $4
		WHERE entry_id = $1;
	`, entryID, string(domain.ActionDelete), now, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s %s: %w", kind, entryID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &prev, nil
}

func (r *PgxEntryRepository) PurgeEntry(ctx context.Context, kind domain.EntryKind, entryID string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE entry_id = $1;`, entryID); err != nil {
		return fmt.Errorf("failed to purge %s %s: %w", kind, entryID, err)
	}
	_, err = tx.Exec(ctx, `DELETE FROM payment_transactions WHERE entry_kind = $1 AND entry_id = $2;`, string(kind), entryID)
	if err != nil {
		return fmt.Errorf("failed to release transaction id of %s %s: %w", kind, entryID, err)
	}
	return r.Commit(ctx, tx)
}

// queryKinds runs the same filter against the tables of kinds (all kinds when empty) and
// merges the rows ordered by creation time then entry id.
func (r *PgxEntryRepository) queryKinds(ctx context.Context, kinds []domain.EntryKind, where string, args ...any) ([]domain.LedgerEntry, error) {
	if len(kinds) == 0 {
		kinds = domain.AllEntryKinds
	}
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		table, err := tableFor(kind)
		if err != nil {
			return nil, err
		}
		parts = append(parts, fmt.Sprintf(`SELECT '%s' AS kind, %s FROM %s WHERE NOT del_flag AND %s`,
			string(kind), entryColumns, table, where))
	}
	query := strings.Join(parts, "\nUNION ALL\n") + "\nORDER BY created_at, entry_id;"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows, "", true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

func monthRange(monthStart time.Time) (time.Time, time.Time) {
	start := domain.MonthStart(monthStart)
	return start, start.AddDate(0, 1, 0)
}

func (r *PgxEntryRepository) FindEntriesByAccount(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	return r.queryKinds(ctx, nil, `account_id = $1`, accountID)
}

func (r *PgxEntryRepository) FindEntriesByAccountAndMonth(ctx context.Context, accountID string, monthStart time.Time, kinds ...domain.EntryKind) ([]domain.LedgerEntry, error) {
	from, to := monthRange(monthStart)
	return r.queryKinds(ctx, kinds, `account_id = $1 AND posted_at >= $2 AND posted_at < $3`, accountID, from, to)
}

func (r *PgxEntryRepository) FindEntriesBySchoolAndMonth(ctx context.Context, schoolID string, monthStart time.Time) ([]domain.LedgerEntry, error) {
	from, to := monthRange(monthStart)
	return r.queryKinds(ctx, nil, `school_id = $1 AND posted_at >= $2 AND posted_at < $3`, schoolID, from, to)
}

func (r *PgxEntryRepository) FindEntriesByBucket(ctx context.Context, bucket domain.BucketKey) ([]domain.LedgerEntry, error) {
	from, to := monthRange(bucket.MonthStart)
	return r.queryKinds(ctx, nil,
		`school_id = $1 AND session_id = $2 AND term_id = $3 AND posted_at >= $4 AND posted_at < $5`,
		bucket.SchoolID, bucket.SessionID, bucket.TermID, from, to)
}

func (r *PgxEntryRepository) FindFeesPaymentsByClass(ctx context.Context, schoolID, classID, sessionID, termID string) ([]domain.LedgerEntry, error) {
	return r.queryKinds(ctx, []domain.EntryKind{domain.KindFeesPayment},
		`school_id = $1 AND class_id = $2 AND session_id = $3 AND term_id = $4`,
		schoolID, classID, sessionID, termID)
}
