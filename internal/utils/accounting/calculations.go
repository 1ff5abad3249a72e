package accounting

import (
	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BucketDelta is a signed change to one revenue bucket.
type BucketDelta struct {
	Key   domain.BucketKey
	Delta decimal.Decimal
}

// AccountDelta is a signed change to one account balance.
type AccountDelta struct {
	AccountID string
	Delta     decimal.Decimal
	// EnforceNonNegative is set when the change must not drive the balance below zero.
	EnforceNonNegative bool
}

// SumContributions adds up the signed contributions of entries.
// This is used in both services and repositories so that recompute and incremental paths agree.
func SumContributions(entries []domain.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Contribution())
	}
	return total
}

// BucketDeltas returns the bucket changes needed to move from prev to next.
// A nil prev is a create and a nil next is a void. Zero deltas are dropped.
// When the bucket moves, the old bucket loses the old contribution and the new one gains the new.
func BucketDeltas(prev, next *domain.LedgerEntry) []BucketDelta {
	var deltas []BucketDelta
	add := func(key domain.BucketKey, d decimal.Decimal) {
		if !d.IsZero() {
			deltas = append(deltas, BucketDelta{Key: key, Delta: d})
		}
	}

	switch {
	case prev == nil && next == nil:
		return nil
	case prev == nil:
		add(next.Bucket(), next.Contribution())
	case next == nil:
		add(prev.Bucket(), prev.Contribution().Neg())
	case prev.Bucket().Equal(next.Bucket()):
		add(next.Bucket(), next.Contribution().Sub(prev.Contribution()))
	default:
		add(prev.Bucket(), prev.Contribution().Neg())
		add(next.Bucket(), next.Contribution())
	}
	return deltas
}

// AccountDeltas returns the balance changes needed to move from prev to next.
// Decreases caused by expenses are flagged for the non-negative check.
func AccountDeltas(prev, next *domain.LedgerEntry) []AccountDelta {
	byAccount := map[string]decimal.Decimal{}
	var order []string
	kinds := map[string]domain.EntryKind{}
	add := func(e *domain.LedgerEntry, d decimal.Decimal) {
		if e == nil || !e.HasAccount() {
			return
		}
		if _, seen := byAccount[e.AccountID]; !seen {
			order = append(order, e.AccountID)
			byAccount[e.AccountID] = decimal.Zero
		}
		byAccount[e.AccountID] = byAccount[e.AccountID].Add(d)
		kinds[e.AccountID] = e.Kind
	}
	if prev != nil {
		add(prev, prev.Contribution().Neg())
	}
	if next != nil {
		add(next, next.Contribution())
	}

	var deltas []AccountDelta
	for _, id := range order {
		d := byAccount[id]
		if d.IsZero() {
			continue
		}
		deltas = append(deltas, AccountDelta{
			AccountID:          id,
			Delta:              d,
			EnforceNonNegative: RequiresFundsCheck(kinds[id], d),
		})
	}
	return deltas
}

// RequiresFundsCheck reports whether a balance change must respect the non-negative rule.
// Only expense postings are checked; deposits, payments and voids never are.
func RequiresFundsCheck(kind domain.EntryKind, delta decimal.Decimal) bool {
	return kind == domain.KindExpense && delta.IsNegative()
}
