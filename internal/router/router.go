package router

import (
	"net/http"

	"github.com/galaktika/backend/internal/dashboard"
	"github.com/galaktika/backend/internal/handlers"
	"github.com/galaktika/backend/internal/registry"
)

// New returns the /v1 API handler.
// Player routes run behind userCtx (identity) and frozen (write guard);
// ops routes are expected to sit behind a network-level boundary.
func New(
	offerHandler *registry.Handler,
	marketHandler *handlers.MarketHandler,
	profileHandler *handlers.ProfileHandler,
	dashHandler *dashboard.Handler,
	userCtx func(http.Handler) http.Handler,
	frozen func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()

	// Offer surface.
	mux.Handle("GET /v1/offers", userCtx(http.HandlerFunc(offerHandler.ListOffers)))
	mux.Handle("POST /v1/offers", userCtx(frozen(http.HandlerFunc(offerHandler.CreateOffer))))
	mux.Handle("POST /v1/offers/{id}/cancel", userCtx(frozen(http.HandlerFunc(offerHandler.CancelOffer))))
	mux.Handle("POST /v1/offers/{id}/purchase", userCtx(frozen(http.HandlerFunc(marketHandler.Purchase))))

	// Account surface.
	mux.Handle("GET /v1/balance", userCtx(http.HandlerFunc(marketHandler.ListBalances)))
	mux.Handle("GET /v1/balance/{resource}", userCtx(http.HandlerFunc(marketHandler.GetBalance)))
	mux.Handle("POST /v1/checkin", userCtx(http.HandlerFunc(marketHandler.DailyCheckIn)))

	// Inventory and purchase history.
	mux.Handle("GET /v1/items", userCtx(http.HandlerFunc(profileHandler.ListItems)))
	mux.Handle("GET /v1/items/{id}", userCtx(http.HandlerFunc(profileHandler.GetItem)))
	mux.Handle("GET /v1/transactions", userCtx(http.HandlerFunc(profileHandler.ListTransactions)))

	// Payment webhook: called by the chain gateway, not by players.
	mux.HandleFunc("POST /v1/payments/{id}/chain-confirmation", marketHandler.ConfirmChainTx)

	// Operator surface.
	mux.HandleFunc("GET /v1/ops/users/{userID}/balances", dashHandler.ListUserBalances)
	mux.HandleFunc("GET /v1/ops/users/{userID}/ledger", dashHandler.ListUserLedger)
	mux.HandleFunc("POST /v1/ops/users/{userID}/reconcile/{resource}", dashHandler.Reconcile)
	mux.HandleFunc("POST /v1/ops/users/{userID}/unfreeze", dashHandler.Unfreeze)
	mux.HandleFunc("POST /v1/ops/users", dashHandler.CreateUser)
	mux.HandleFunc("POST /v1/ops/users/{userID}/items", dashHandler.MintItem)
	mux.HandleFunc("GET /v1/ops/commissions", dashHandler.ListCommissions)
	mux.HandleFunc("PUT /v1/ops/commissions/{currency}", dashHandler.UpsertCommission)

	return mux
}
