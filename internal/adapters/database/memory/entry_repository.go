package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/school_ledger/internal/core/ports/repositories"
)

type entryKey struct {
	kind domain.EntryKind
	id   string
}

// EntryRepository is an in-memory implementation of portsrepo.EntryRepositoryFacade.
// Soft-deleted entries stay in the map with DelFlag set and are hidden from reads.
type EntryRepository struct {
	mu      sync.Mutex
	entries map[entryKey]domain.LedgerEntry
	txnIDs  map[string]entryKey
}

// NewEntryRepository creates an empty entry store.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{
		entries: make(map[entryKey]domain.LedgerEntry),
		txnIDs:  make(map[string]entryKey),
	}
}

var _ portsrepo.EntryRepositoryFacade = (*EntryRepository)(nil)

func cloneEntry(e domain.LedgerEntry) domain.LedgerEntry {
	if e.FeeLines != nil {
		e.FeeLines = append([]domain.FeeLinePayment(nil), e.FeeLines...)
	}
	return e
}

func (r *EntryRepository) CreateEntry(ctx context.Context, entry domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entryKey{entry.Kind, entry.EntryID}
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: entry %s", apperrors.ErrDuplicate, entry.EntryID)
	}
	if entry.TransactionID != "" {
		if _, exists := r.txnIDs[entry.TransactionID]; exists {
			return fmt.Errorf("%w: transaction id %s", apperrors.ErrDuplicate, entry.TransactionID)
		}
		r.txnIDs[entry.TransactionID] = key
	}
	r.entries[key] = cloneEntry(entry)
	return nil
}

func (r *EntryRepository) live(kind domain.EntryKind, entryID string) (domain.LedgerEntry, error) {
	e, ok := r.entries[entryKey{kind, entryID}]
	if !ok || e.DelFlag {
		return domain.LedgerEntry{}, fmt.Errorf("%w: %s entry %s", apperrors.ErrNotFound, kind, entryID)
	}
	return e, nil
}

func (r *EntryRepository) FindEntryByID(ctx context.Context, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.live(kind, entryID)
	if err != nil {
		return nil, err
	}
	out := cloneEntry(e)
	return &out, nil
}

func (r *EntryRepository) UpdateEntry(ctx context.Context, kind domain.EntryKind, entryID string, patch domain.EntryPatch, userID string, now time.Time) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.live(kind, entryID)
	if err != nil {
		return nil, err
	}
	next := prev.Apply(patch)
	next.ActionType = domain.ActionUpdate
	next.ModFlag = true
	next.LastUpdatedAt = now
	next.LastUpdatedBy = userID
	r.entries[entryKey{kind, entryID}] = cloneEntry(next)

	out := cloneEntry(prev)
	return &out, nil
}

func (r *EntryRepository) RestoreEntry(ctx context.Context, previous domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entryKey{previous.Kind, previous.EntryID}
	if _, ok := r.entries[key]; !ok {
		return fmt.Errorf("%w: %s entry %s", apperrors.ErrNotFound, previous.Kind, previous.EntryID)
	}
	r.entries[key] = cloneEntry(previous)
	return nil
}

func (r *EntryRepository) DeleteEntry(ctx context.Context, kind domain.EntryKind, entryID string, userID string, now time.Time) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.live(kind, entryID)
	if err != nil {
		return nil, err
	}
	deleted := prev
	deleted.DelFlag = true
	deleted.ActionType = domain.ActionDelete
	deleted.LastUpdatedAt = now
	deleted.LastUpdatedBy = userID
	r.entries[entryKey{kind, entryID}] = deleted

	out := cloneEntry(prev)
	return &out, nil
}

func (r *EntryRepository) PurgeEntry(ctx context.Context, kind domain.EntryKind, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entryKey{kind, entryID}
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("%w: %s entry %s", apperrors.ErrNotFound, kind, entryID)
	}
	if e.TransactionID != "" {
		delete(r.txnIDs, e.TransactionID)
	}
	delete(r.entries, key)
	return nil
}

// filter returns live entries matching keep, ordered by created_at then entry id.
func (r *EntryRepository) filter(keep func(domain.LedgerEntry) bool) []domain.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range r.entries {
		if !e.DelFlag && keep(e) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].EntryID < out[j].EntryID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *EntryRepository) FindEntriesByAccount(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	return r.filter(func(e domain.LedgerEntry) bool { return e.AccountID == accountID }), nil
}

func (r *EntryRepository) FindEntriesByAccountAndMonth(ctx context.Context, accountID string, monthStart time.Time, kinds ...domain.EntryKind) ([]domain.LedgerEntry, error) {
	month := domain.MonthStart(monthStart)
	return r.filter(func(e domain.LedgerEntry) bool {
		return e.AccountID == accountID && domain.MonthStart(e.PostedAt).Equal(month) && kindIn(e.Kind, kinds)
	}), nil
}

func (r *EntryRepository) FindEntriesBySchoolAndMonth(ctx context.Context, schoolID string, monthStart time.Time) ([]domain.LedgerEntry, error) {
	month := domain.MonthStart(monthStart)
	return r.filter(func(e domain.LedgerEntry) bool {
		return e.SchoolID == schoolID && domain.MonthStart(e.PostedAt).Equal(month)
	}), nil
}

func (r *EntryRepository) FindEntriesByBucket(ctx context.Context, bucket domain.BucketKey) ([]domain.LedgerEntry, error) {
	return r.filter(func(e domain.LedgerEntry) bool { return e.Bucket().Equal(bucket) }), nil
}

func (r *EntryRepository) FindFeesPaymentsByClass(ctx context.Context, schoolID, classID, sessionID, termID string) ([]domain.LedgerEntry, error) {
	return r.filter(func(e domain.LedgerEntry) bool {
		return e.Kind == domain.KindFeesPayment && e.SchoolID == schoolID && e.ClassID == classID &&
			e.SessionID == sessionID && e.TermID == termID
	}), nil
}

func kindIn(kind domain.EntryKind, kinds []domain.EntryKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
