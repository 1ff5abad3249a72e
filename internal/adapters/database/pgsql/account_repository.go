package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/school_ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, school_id, name, description, is_active, balance, entry_ids, created_at, created_by, last_updated_at, last_updated_by`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// Helper to convert domain.Account to models.Account for DB storage
func toModelAccount(d domain.Account) models.Account {
	entryIDs := d.EntryIDs
	if entryIDs == nil {
		entryIDs = []string{}
	}
	return models.Account{
		AccountID:   d.AccountID,
		SchoolID:    d.SchoolID,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		Balance:     d.Balance,
		EntryIDs:    entryIDs,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

// Helper to convert models.Account from DB to domain.Account
func toDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:   m.AccountID,
		SchoolID:    m.SchoolID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		Balance:     m.Balance,
		EntryIDs:    m.EntryIDs,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.SchoolID,
		&m.Name,
		&m.Description,
		&m.IsActive,
		&m.Balance,
		&m.EntryIDs,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Account{}, err
	}
	if m.EntryIDs == nil {
		m.EntryIDs = []string{}
	}
	return toDomainAccount(m), nil
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := toModelAccount(account)
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AccountID,
		m.SchoolID,
		m.Name,
		m.Description,
		m.IsActive,
		m.Balance,
		m.EntryIDs,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, m.AccountID)
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	account, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to find account by ID %s: %w", accountID, err)
	}
	return &account, nil
}

// ListAccounts retrieves a paginated list of a school's accounts ordered by name.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, schoolID string, limit int, offset int) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE school_id = $1
		ORDER BY name, account_id
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, schoolID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts for school %s: %w", schoolID, err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// ApplyDelta adds delta to the balance in a single statement. The guard in the WHERE clause
// makes the non-negative check and the write one atomic step.
func (r *PgxAccountRepository) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, enforceNonNegative bool) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2::numeric
		WHERE account_id = $1
		  AND (NOT $3::boolean OR balance + $2::numeric >= 0)
		RETURNING balance;
	`
	var balance decimal.Decimal
	err := r.Pool.QueryRow(ctx, query, accountID, delta, enforceNonNegative).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to apply delta %s to account %s: %w", delta.String(), accountID, err)
	}

	// No row updated: either the account is missing or the guard rejected the change.
	var current decimal.Decimal
	err = r.Pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE account_id = $1;`, accountID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance of account %s: %w", accountID, err)
	}
	return current, fmt.Errorf("%w: account %s balance %s, delta %s", apperrors.ErrInsufficientFunds,
		accountID, current.String(), delta.String())
}

func (r *PgxAccountRepository) AttachEntry(ctx context.Context, accountID string, entryID string) error {
	query := `
		UPDATE accounts
		SET entry_ids = array_append(entry_ids, $2::text)
		WHERE account_id = $1 AND NOT ($2::text = ANY(entry_ids));
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, entryID)
	if err != nil {
		return fmt.Errorf("failed to attach entry %s to account %s: %w", entryID, accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.ensureExists(ctx, accountID)
	}
	return nil
}

func (r *PgxAccountRepository) DetachEntry(ctx context.Context, accountID string, entryID string) error {
	query := `UPDATE accounts SET entry_ids = array_remove(entry_ids, $2::text) WHERE account_id = $1;`
	tag, err := r.Pool.Exec(ctx, query, accountID, entryID)
	if err != nil {
		return fmt.Errorf("failed to detach entry %s from account %s: %w", entryID, accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}

func (r *PgxAccountRepository) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE accounts SET balance = $2 WHERE account_id = $1;`, accountID, balance)
	if err != nil {
		return fmt.Errorf("failed to set balance of account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}

func (r *PgxAccountRepository) ensureExists(ctx context.Context, accountID string) error {
	var exists bool
	err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1);`, accountID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check account %s: %w", accountID, err)
	}
	if !exists {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}
