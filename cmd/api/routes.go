package main

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/galaktika/backend/internal/dashboard"
	"github.com/galaktika/backend/internal/handlers"
	"github.com/galaktika/backend/internal/ledger"
	"github.com/galaktika/backend/internal/middleware"
	"github.com/galaktika/backend/internal/registry"
	"github.com/galaktika/backend/internal/repository"
	"github.com/galaktika/backend/internal/router"
	"github.com/galaktika/backend/internal/services"
)

// RegisterV1Routes adds the /v1/ market endpoints to the given mux.
// Middleware chain: UserCtx -> (FrozenGuard on writes) -> handler.
func RegisterV1Routes(
	mux *http.ServeMux,
	registrySvc registry.Service,
	marketSvc *services.MarketService,
	accountSvc *services.AccountService,
	checkinSvc *services.CheckInService,
	ledgerSvc ledger.Service,
	accountRepo *repository.AccountRepo,
	userRepo *repository.UserRepo,
	itemRepo *repository.ItemRepo,
	commissionRepo *repository.CommissionRepo,
	marketTxRepo *repository.MarketTxRepo,
	enqueueChain handlers.ChainTxEnqueuer,
	logger *slog.Logger,
) {
	validate := validator.New()

	offerHandler := registry.NewHandler(registrySvc, validate, logger)
	marketHandler := &handlers.MarketHandler{
		Market:       marketSvc,
		Accounts:     accountSvc,
		CheckIn:      checkinSvc,
		EnqueueChain: enqueueChain,
		Validate:     validate,
		Logger:       logger,
	}
	profileHandler := &handlers.ProfileHandler{
		Items:     itemRepo,
		Purchases: marketTxRepo,
		Logger:    logger,
	}
	dashHandler := dashboard.NewHandler(accountRepo, userRepo, itemRepo, commissionRepo, ledgerSvc, logger)

	userCtx := middleware.UserCtx(userRepo)
	frozen := middleware.FrozenGuard()

	mux.Handle("/v1/", router.New(offerHandler, marketHandler, profileHandler, dashHandler, userCtx, frozen))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
