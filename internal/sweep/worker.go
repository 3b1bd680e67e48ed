package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// ExpireOffersJobArgs triggers one sweep over ACTIVE offers whose
// expiry passed. Enqueued periodically from main.
type ExpireOffersJobArgs struct{}

func (ExpireOffersJobArgs) Kind() string { return "expire_offers" }

// OfferExpirer is the registry surface the sweep drives.
type OfferExpirer interface {
	ExpireOffers(ctx context.Context, now time.Time) (int, error)
}

type ExpireOffersWorker struct {
	river.WorkerDefaults[ExpireOffersJobArgs]
	offers OfferExpirer
	logger *slog.Logger
}

func NewExpireOffersWorker(offers OfferExpirer, logger *slog.Logger) *ExpireOffersWorker {
	return &ExpireOffersWorker{offers: offers, logger: logger}
}

func (w *ExpireOffersWorker) Work(ctx context.Context, job *river.Job[ExpireOffersJobArgs]) error {
	count, err := w.offers.ExpireOffers(ctx, time.Now())
	if err != nil {
		return err
	}
	if count > 0 {
		w.logger.Info("expired offers", "count", count)
	}
	return nil
}
