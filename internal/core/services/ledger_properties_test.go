package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/SscSPs/school_ledger/internal/apperrors"
	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/SscSPs/school_ledger/internal/dto"
	"github.com/SscSPs/school_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var propertyMonths = []time.Month{time.January, time.February, time.March, time.April}

type plannedPost struct {
	kind domain.EntryKind
	req  func(accountID string) dto.PostEntryRequest
}

// TestLedgerService_OrderIndependence posts the same set of entries in different orders and
// expects identical derived values.
func TestLedgerService_OrderIndependence(t *testing.T) {
	plan := []plannedPost{
		{domain.KindDeposit, func(a string) dto.PostEntryRequest { return depositReq(a, "120.50", day(2024, time.January, 4)) }},
		{domain.KindDeposit, func(a string) dto.PostEntryRequest { return depositReq(a, "80", day(2024, time.March, 31)) }},
		{domain.KindExpense, func(a string) dto.PostEntryRequest { return expenseReq(a, "45.25", day(2024, time.February, 1)) }},
		{domain.KindExpense, func(a string) dto.PostEntryRequest { return expenseReq(a, "10", day(2024, time.March, 2)) }},
		{domain.KindFeesPayment, func(a string) dto.PostEntryRequest {
			return paymentReq(a, "300", day(2024, time.January, 15), domain.StatusCompleted)
		}},
		{domain.KindClassPayment, func(a string) dto.PostEntryRequest {
			return paymentReq(a, "25", day(2024, time.April, 1), domain.StatusPending)
		}},
		{domain.KindMealPayment, func(a string) dto.PostEntryRequest {
			return paymentReq("", "7.75", day(2024, time.February, 29), domain.StatusCompleted)
		}},
	}

	var firstBalance decimal.Decimal
	var firstBuckets map[time.Month]decimal.Decimal

	for seed := int64(1); seed <= 6; seed++ {
		h := newHarness(t, nil)
		acc := h.newAccount(t)
		// A float large enough that no ordering trips the funds check
		h.post(t, domain.KindDeposit, depositReq(acc, "1000", day(2024, time.January, 1)))

		order := rand.New(rand.NewSource(seed)).Perm(len(plan))
		for _, i := range order {
			h.post(t, plan[i].kind, plan[i].req(acc))
		}

		buckets := map[time.Month]decimal.Decimal{}
		for _, m := range propertyMonths {
			buckets[m] = h.bucket(t, day(2024, m, 1))
		}
		balance := h.balance(t, acc)

		if seed == 1 {
			firstBalance, firstBuckets = balance, buckets
			assert.True(t, amt("1445.25").Equal(balance), "got %s", balance)
			assert.True(t, amt("1420.50").Equal(buckets[time.January]))
			assert.True(t, amt("-37.50").Equal(buckets[time.February]))
			assert.True(t, amt("70").Equal(buckets[time.March]))
			assert.True(t, buckets[time.April].IsZero())
			continue
		}
		assert.True(t, firstBalance.Equal(balance), "seed %d balance %s", seed, balance)
		for _, m := range propertyMonths {
			assert.True(t, firstBuckets[m].Equal(buckets[m]), "seed %d month %s", seed, m)
		}
	}
}

// TestLedgerService_RandomOperationsKeepInvariants runs random posts, edits and voids and then
// checks every derived value against a fresh sum of the stored entries.
func TestLedgerService_RandomOperationsKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		rng := rand.New(rand.NewSource(seed))
		h := newHarness(t, nil)
		acc := h.newAccount(t)

		type ref struct {
			kind domain.EntryKind
			id   string
		}
		var live []ref

		randomDate := func() time.Time {
			return day(2024, propertyMonths[rng.Intn(len(propertyMonths))], 1+rng.Intn(28))
		}
		randomAmount := func() decimal.Decimal {
			return decimal.NewFromInt(int64(1 + rng.Intn(400))).Shift(-1)
		}

		for op := 0; op < 120; op++ {
			switch roll := rng.Intn(10); {
			case roll < 5 || len(live) == 0:
				kind := domain.AllEntryKinds[rng.Intn(len(domain.AllEntryKinds))]
				var req dto.PostEntryRequest
				switch kind {
				case domain.KindDeposit:
					req = depositReq(acc, "1", randomDate())
				case domain.KindExpense:
					req = expenseReq(acc, "1", randomDate())
				default:
					status := domain.StatusCompleted
					if rng.Intn(3) == 0 {
						status = domain.StatusPending
					}
					accountID := acc
					if rng.Intn(4) == 0 {
						accountID = ""
					}
					req = paymentReq(accountID, "1", randomDate(), status)
				}
				req.Amount = randomAmount()
				entry, err := h.ledger.PostEntry(h.ctx, kind, req)
				if errors.Is(err, apperrors.ErrInsufficientFunds) {
					continue
				}
				require.NoError(t, err)
				live = append(live, ref{kind, entry.EntryID})

			case roll < 8:
				target := live[rng.Intn(len(live))]
				var req dto.EditEntryRequest
				switch rng.Intn(3) {
				case 0:
					a := randomAmount()
					req.Amount = &a
				case 1:
					d := randomDate()
					req.PostedAt = &d
				default:
					if !target.kind.IsPayment() {
						a := randomAmount()
						req.Amount = &a
						break
					}
					statuses := []domain.EntryStatus{domain.StatusPending, domain.StatusCompleted, domain.StatusFailed, domain.StatusRefunded}
					s := statuses[rng.Intn(len(statuses))]
					req.Status = &s
				}
				_, err := h.ledger.EditEntry(h.ctx, target.kind, target.id, req)
				if errors.Is(err, apperrors.ErrInsufficientFunds) || errors.Is(err, apperrors.ErrConflict) {
					continue
				}
				require.NoError(t, err)

			default:
				i := rng.Intn(len(live))
				_, err := h.ledger.VoidEntry(h.ctx, live[i].kind, live[i].id)
				require.NoError(t, err)
				live = append(live[:i], live[i+1:]...)
			}
		}

		entries, err := h.store.Entries.FindEntriesByAccount(context.Background(), acc)
		require.NoError(t, err)
		balance := h.balance(t, acc)
		assert.True(t, accounting.SumContributions(entries).Equal(balance), "seed %d: balance %s", seed, balance)

		account, err := h.accounts.GetAccountByID(h.ctx, acc)
		require.NoError(t, err)
		assert.Len(t, account.EntryIDs, len(entries), "seed %d: attached entries", seed)

		for _, m := range propertyMonths {
			key := domain.NewBucketKey(testSchool, testSession, testTerm, day(2024, m, 1))
			bucketEntries, err := h.store.Entries.FindEntriesByBucket(context.Background(), key)
			require.NoError(t, err)

			incremental := h.bucket(t, key.MonthStart)
			assert.True(t, accounting.SumContributions(bucketEntries).Equal(incremental),
				"seed %d month %s: incremental %s", seed, m, incremental)

			first, err := h.revenue.Recompute(h.ctx, key)
			require.NoError(t, err)
			second, err := h.revenue.Recompute(h.ctx, key)
			require.NoError(t, err)
			assert.True(t, incremental.Equal(first), "seed %d month %s: recompute drifted", seed, m)
			assert.True(t, first.Equal(second), "seed %d month %s: recompute is not idempotent", seed, m)
		}

		recomputed, err := h.accounts.RecomputeBalance(h.ctx, acc)
		require.NoError(t, err)
		assert.True(t, balance.Equal(recomputed.Balance), "seed %d: balance recompute drifted", seed)
	}
}
