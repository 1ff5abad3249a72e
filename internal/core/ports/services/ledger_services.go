package services

import (
	"context"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/SscSPs/school_ledger/internal/dto"
)

// LedgerReaderSvc defines read operations for ledger entries
type LedgerReaderSvc interface {
	GetEntry(ctx context.Context, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error)
}

// LedgerWriterSvc runs the entry pipeline: entry write, account balance, then revenue bucket.
type LedgerWriterSvc interface {
	PostEntry(ctx context.Context, kind domain.EntryKind, req dto.PostEntryRequest) (*domain.LedgerEntry, error)
	EditEntry(ctx context.Context, kind domain.EntryKind, entryID string, req dto.EditEntryRequest) (*domain.LedgerEntry, error)
	VoidEntry(ctx context.Context, kind domain.EntryKind, entryID string) (*domain.LedgerEntry, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
}
