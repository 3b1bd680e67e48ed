package chain

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/galaktika/backend/internal/ledger"
)

// AttachChainTxJobArgs carries one external chain transaction id to be
// stamped onto a confirmed ledger posting. Attachment is asynchronous:
// nothing in the purchase path ever waits on chain I/O.
type AttachChainTxJobArgs struct {
	PaymentID uuid.UUID `json:"payment_id"`
	ChainTxID string    `json:"chain_tx_id"`
}

func (AttachChainTxJobArgs) Kind() string { return "attach_chain_tx" }

// LedgerAttacher is the ledger surface the worker needs.
type LedgerAttacher interface {
	AttachChainTx(ctx context.Context, id uuid.UUID, chainTxID string) error
}

type AttachChainTxWorker struct {
	river.WorkerDefaults[AttachChainTxJobArgs]
	ledger LedgerAttacher
	logger *slog.Logger
}

func NewAttachChainTxWorker(ledger LedgerAttacher, logger *slog.Logger) *AttachChainTxWorker {
	return &AttachChainTxWorker{ledger: ledger, logger: logger}
}

func (w *AttachChainTxWorker) Work(ctx context.Context, job *river.Job[AttachChainTxJobArgs]) error {
	args := job.Args
	err := w.ledger.AttachChainTx(ctx, args.PaymentID, args.ChainTxID)
	switch {
	case errors.Is(err, ledger.ErrAlreadyAttached):
		// Terminal: retrying can never change a first-write-wins column.
		w.logger.Warn("chain tx already attached, dropping job", "payment_id", args.PaymentID)
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		// Posting missing or not CONFIRMED yet; River's retry policy
		// picks it up once the purchase commits.
		w.logger.Warn("posting not confirmed yet, requeueing", "payment_id", args.PaymentID)
		return err
	}
	return err
}
