package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntryKind(t *testing.T) {
	tests := []struct {
		in      string
		want    EntryKind
		wantErr bool
	}{
		{in: "deposits", want: KindDeposit},
		{in: "fees-payments", want: KindFeesPayment},
		{in: "MEAL_PAYMENT", want: KindMealPayment},
		{in: "class_payment", want: KindClassPayment},
		{in: "refunds", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntryKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, k := range AllEntryKinds {
		parsed, err := ParseEntryKind(k.Slug())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}

func TestContribution(t *testing.T) {
	base := LedgerEntry{Amount: decimal.NewFromInt(75), Status: StatusCompleted}

	tests := []struct {
		name   string
		mutate func(e *LedgerEntry)
		want   int64
	}{
		{name: "deposit adds", mutate: func(e *LedgerEntry) { e.Kind = KindDeposit }, want: 75},
		{name: "expense subtracts", mutate: func(e *LedgerEntry) { e.Kind = KindExpense }, want: -75},
		{name: "completed payment adds", mutate: func(e *LedgerEntry) { e.Kind = KindFeesPayment }, want: 75},
		{name: "pending payment is ignored", mutate: func(e *LedgerEntry) { e.Kind = KindMealPayment; e.Status = StatusPending }, want: 0},
		{name: "refunded payment is ignored", mutate: func(e *LedgerEntry) { e.Kind = KindClassPayment; e.Status = StatusRefunded }, want: 0},
		{name: "voided entry is ignored", mutate: func(e *LedgerEntry) { e.Kind = KindDeposit; e.DelFlag = true }, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(e.Contribution()), "got %s", e.Contribution())
		})
	}
}

func TestMonthStartIsUTC(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	// 00:30 on 1 April in UTC+1 is still March in UTC
	posted := time.Date(2024, 4, 1, 0, 30, 0, 0, lagos)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), MonthStart(posted))

	a := NewBucketKey("s", "sess", "t", time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC))
	b := NewBucketKey("s", "sess", "t", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, a.Equal(b))
	assert.Equal(t, "s/sess/t/2024-03", a.String())
}

func TestApplyPatch(t *testing.T) {
	e := LedgerEntry{
		Kind:        KindFeesPayment,
		Amount:      decimal.NewFromInt(100),
		Status:      StatusPending,
		Description: "first instalment",
		FeeLines:    []FeeLinePayment{{FeeLineID: "tuition", Paid: decimal.NewFromInt(100)}},
	}

	assert.True(t, EntryPatch{}.IsEmpty())

	completed := StatusCompleted
	out := e.Apply(EntryPatch{Status: &completed})
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, StatusPending, e.Status, "Apply must not mutate the receiver")

	lines := []FeeLinePayment{
		{FeeLineID: "tuition", Paid: decimal.NewFromInt(80)},
		{FeeLineID: "books", Paid: decimal.NewFromInt(45), Fine: decimal.NewFromInt(5)},
	}
	out = e.Apply(EntryPatch{FeeLines: lines})
	assert.True(t, decimal.NewFromInt(125).Equal(out.Amount), "amount follows the fee lines when not given")
	assert.Len(t, out.FeeLines, 2)
}

func TestEntryStatus(t *testing.T) {
	assert.True(t, StatusCompleted.Counts())
	assert.False(t, StatusPending.Counts())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, EntryStatus("DONE").IsValid())
}

func TestEntryStatus_CanMoveTo(t *testing.T) {
	tests := []struct {
		from, to EntryStatus
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusRefunded, true},
		{StatusCompleted, StatusFailed, true},
		{StatusCompleted, StatusPending, false},
		{StatusRefunded, StatusCompleted, false},
		{StatusFailed, StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanMoveTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
