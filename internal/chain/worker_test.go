package chain

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/galaktika/backend/internal/ledger"
)

type mockAttacher struct {
	err   error
	calls int
}

func (m *mockAttacher) AttachChainTx(context.Context, uuid.UUID, string) error {
	m.calls++
	return m.err
}

func attachJob() *river.Job[AttachChainTxJobArgs] {
	return &river.Job[AttachChainTxJobArgs]{
		Args: AttachChainTxJobArgs{PaymentID: uuid.New(), ChainTxID: "0xabc"},
	}
}

func TestAttachChainTxWorkOutcomes(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	// Success completes the job.
	w := NewAttachChainTxWorker(&mockAttacher{}, logger)
	if err := w.Work(ctx, attachJob()); err != nil {
		t.Fatalf("Work: %v", err)
	}

	// An id that is already attached can never be attached again, so the
	// job completes instead of burning retries.
	w = NewAttachChainTxWorker(&mockAttacher{err: ledger.ErrAlreadyAttached}, logger)
	if err := w.Work(ctx, attachJob()); err != nil {
		t.Fatalf("already attached should complete the job, got: %v", err)
	}

	// A posting not CONFIRMED yet is worth a requeue.
	w = NewAttachChainTxWorker(&mockAttacher{err: pgx.ErrNoRows}, logger)
	if err := w.Work(ctx, attachJob()); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("unconfirmed posting should requeue, got: %v", err)
	}

	// Anything else surfaces unchanged.
	boom := errors.New("connection reset")
	w = NewAttachChainTxWorker(&mockAttacher{err: boom}, logger)
	if err := w.Work(ctx, attachJob()); !errors.Is(err, boom) {
		t.Fatalf("unexpected error mapping: %v", err)
	}
}
