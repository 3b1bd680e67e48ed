package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/middleware"
	"github.com/galaktika/backend/internal/models"
	"github.com/galaktika/backend/internal/services"
)

// Purchaser abstracts the transaction orchestrator.
type Purchaser interface {
	Purchase(ctx context.Context, offerID, buyerID uuid.UUID) (*models.MarketTransaction, error)
}

// BalanceReader is the account surface the handler reads.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID, resource string) (*models.ResourceBalance, error)
	ListBalances(ctx context.Context, userID uuid.UUID) ([]*models.ResourceBalance, error)
}

// DailyCheckIn abstracts the streak/reward claim.
type DailyCheckIn interface {
	CheckIn(ctx context.Context, userID uuid.UUID) (*services.CheckInResult, error)
}

// ChainTxEnqueuer hands a chain-confirmation job to the queue. Wired in
// main as a closure over the River client.
type ChainTxEnqueuer func(ctx context.Context, paymentID uuid.UUID, chainTxID string) error

// MarketHandler serves the purchase, balance, check-in and
// chain-confirmation endpoints.
type MarketHandler struct {
	Market       Purchaser
	Accounts     BalanceReader
	CheckIn      DailyCheckIn
	EnqueueChain ChainTxEnqueuer
	Validate     *validator.Validate
	Logger       *slog.Logger
}

// --- POST /v1/offers/{id}/purchase ---

type purchaseResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

func (h *MarketHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	offerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid offer id"}`, http.StatusBadRequest)
		return
	}

	mtx, err := h.Market.Purchase(r.Context(), offerID, user.ID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrOfferUnavailable):
		http.Error(w, `{"error":"offer unavailable"}`, http.StatusConflict)
		return
	case errors.Is(err, services.ErrInsufficientFunds):
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
		return
	case errors.Is(err, services.ErrUnknownCommissionRate):
		h.Logger.Error("purchase refused: commission not configured", "offer_id", offerID, "error", err)
		http.Error(w, `{"error":"commission not configured for currency"}`, http.StatusUnprocessableEntity)
		return
	default:
		h.Logger.Error("purchase", "offer_id", offerID, "buyer_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(purchaseResponse{
		TransactionID: mtx.ID.String(),
		Status:        mtx.Status,
	})
}

// --- GET /v1/balance and GET /v1/balance/{resource} ---

func (h *MarketHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	resource := r.PathValue("resource")
	if !models.KnownResource(resource) {
		http.Error(w, `{"error":"unknown resource"}`, http.StatusBadRequest)
		return
	}
	bal, err := h.Accounts.GetBalance(r.Context(), user.ID, resource)
	if err != nil {
		h.Logger.Error("get balance", "user_id", user.ID, "resource", resource, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(bal)
}

func (h *MarketHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	balances, err := h.Accounts.ListBalances(r.Context(), user.ID)
	if err != nil {
		h.Logger.Error("list balances", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if balances == nil {
		balances = []*models.ResourceBalance{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(balances)
}

// --- POST /v1/checkin ---

type checkInResponse struct {
	Streak       int              `json:"streak"`
	MaxStreak    int              `json:"max_streak"`
	RewardDue    bool             `json:"reward_due"`
	RewardAmount *decimal.Decimal `json:"reward_amount,omitempty"`
	RewardKind   string           `json:"reward_resource,omitempty"`
}

func (h *MarketHandler) DailyCheckIn(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	result, err := h.CheckIn.CheckIn(r.Context(), user.ID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrRewardAlreadyClaimed):
		http.Error(w, `{"error":"already claimed today"}`, http.StatusConflict)
		return
	case errors.Is(err, services.ErrAccountFrozen):
		http.Error(w, `{"error":"account frozen pending review"}`, http.StatusForbidden)
		return
	default:
		h.Logger.Error("check-in", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	resp := checkInResponse{Streak: result.Streak, MaxStreak: result.MaxStreak, RewardDue: result.RewardDue}
	if result.Reward != nil {
		resp.RewardAmount = &result.Reward.Amount
		resp.RewardKind = result.Reward.Resource
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// --- POST /v1/payments/{id}/chain-confirmation ---

type chainConfirmRequest struct {
	BlockchainTxID string `json:"blockchain_tx_id" validate:"required,min=8"`
}

// ConfirmChainTx accepts the external chain transaction id for a
// payment leg and enqueues the attachment. The ledger row is updated by
// the queue worker; this endpoint never blocks on chain I/O.
func (h *MarketHandler) ConfirmChainTx(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid payment id"}`, http.StatusBadRequest)
		return
	}
	var req chainConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(&req); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if err := h.EnqueueChain(r.Context(), paymentID, req.BlockchainTxID); err != nil {
		h.Logger.Error("enqueue chain confirmation", "payment_id", paymentID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"queued"}`))
}
