package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/school_ledger/internal/core/domain"
)

// EntryReader defines read operations for ledger entries. Voided entries are never returned.
type EntryReader interface {
	// FindEntryByID retrieves a live entry of the given kind.
	FindEntryByID(ctx context.Context, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error)

	// FindEntriesByAccount returns every live entry posted against the account.
	FindEntriesByAccount(ctx context.Context, accountID string) ([]domain.LedgerEntry, error)

	// FindEntriesByAccountAndMonth returns the account's live entries of the given kinds whose
	// posted date falls in the month starting at monthStart, ordered by created_at then entry id.
	FindEntriesByAccountAndMonth(ctx context.Context, accountID string, monthStart time.Time, kinds ...domain.EntryKind) ([]domain.LedgerEntry, error)

	// FindEntriesBySchoolAndMonth returns all live entries of a school for one month.
	FindEntriesBySchoolAndMonth(ctx context.Context, schoolID string, monthStart time.Time) ([]domain.LedgerEntry, error)

	// FindEntriesByBucket returns the live entries falling into a revenue bucket.
	FindEntriesByBucket(ctx context.Context, bucket domain.BucketKey) ([]domain.LedgerEntry, error)

	// FindFeesPaymentsByClass returns live fees payments of a class for a session and term.
	FindFeesPaymentsByClass(ctx context.Context, schoolID, classID, sessionID, termID string) ([]domain.LedgerEntry, error)
}

// EntryWriter defines write operations for ledger entries
type EntryWriter interface {
	// CreateEntry persists a new entry. Duplicate ids or transaction ids fail with ErrDuplicate.
	CreateEntry(ctx context.Context, entry domain.LedgerEntry) error

	// UpdateEntry applies patch to a live entry and returns the pre-image.
	UpdateEntry(ctx context.Context, kind domain.EntryKind, entryID string, patch domain.EntryPatch, userID string, now time.Time) (*domain.LedgerEntry, error)

	// RestoreEntry overwrites the mutable fields of an entry with a previous image.
	RestoreEntry(ctx context.Context, previous domain.LedgerEntry) error

	// DeleteEntry soft-deletes a live entry and returns it as it was before removal.
	DeleteEntry(ctx context.Context, kind domain.EntryKind, entryID string, userID string, now time.Time) (*domain.LedgerEntry, error)

	// PurgeEntry hard-deletes an entry. Used only to compensate a create.
	PurgeEntry(ctx context.Context, kind domain.EntryKind, entryID string) error
}

// EntryRepositoryFacade combines all entry-related repository interfaces
type EntryRepositoryFacade interface {
	EntryReader
	EntryWriter
}
