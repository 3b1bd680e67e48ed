package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/ledger"
	"github.com/galaktika/backend/internal/models"
	"github.com/galaktika/backend/internal/repository"
)

// Handler is the operator read surface: balances, ledger history and
// the reconciliation check. It takes user ids from the path, not from
// the request identity, because it serves ops tooling, not players.
type Handler struct {
	accountR    *repository.AccountRepo
	userR       *repository.UserRepo
	itemR       *repository.ItemRepo
	commissionR *repository.CommissionRepo
	ledgerSvc   ledger.Service
	log         *slog.Logger
}

func NewHandler(accountR *repository.AccountRepo, userR *repository.UserRepo, itemR *repository.ItemRepo, commissionR *repository.CommissionRepo, ledgerSvc ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accountR: accountR, userR: userR, itemR: itemR, commissionR: commissionR, ledgerSvc: ledgerSvc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) userIDFromPath(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("userID"))
	return id, err == nil
}

// GET /v1/ops/users/{userID}/balances
func (h *Handler) ListUserBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	balances, err := h.accountR.ListBalances(r.Context(), userID)
	if err != nil {
		h.log.Error("list balances failed", "user_id", userID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if balances == nil {
		balances = []*models.ResourceBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// GET /v1/ops/users/{userID}/ledger?limit=N
func (h *Handler) ListUserLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	entries, err := h.ledgerSvc.ListByAccount(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("list ledger failed", "user_id", userID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.PaymentTransaction{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// POST /v1/ops/users/{userID}/reconcile/{resource}
// Runs the lock-balance check: available+locked must equal the net of
// CONFIRMED postings. A mismatch freezes the account and reports 409.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	resource := r.PathValue("resource")
	if !models.KnownResource(resource) {
		http.Error(w, `{"error":"unknown resource"}`, http.StatusBadRequest)
		return
	}
	err := h.ledgerSvc.Reconcile(r.Context(), userID, resource)
	if errors.Is(err, ledger.ErrConsistencyViolation) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"consistent": false,
			"detail":     err.Error(),
		})
		return
	}
	if err != nil {
		h.log.Error("reconcile failed", "user_id", userID, "resource", resource, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consistent": true})
}

// POST /v1/ops/users
// Provisions a user row for an authenticated Telegram identity. Called
// by the gateway on first login, not by players.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TelegramID int64      `json:"telegram_id"`
		Username   string     `json:"username"`
		ReferrerID *uuid.UUID `json:"referrer_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.TelegramID <= 0 {
		http.Error(w, `{"error":"telegram_id required"}`, http.StatusBadRequest)
		return
	}
	if existing, err := h.userR.GetByTelegramID(r.Context(), req.TelegramID); err == nil {
		// Idempotent: re-registering returns the existing row.
		writeJSON(w, http.StatusOK, existing)
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.log.Error("lookup user by telegram id failed", "telegram_id", req.TelegramID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	user := &models.User{
		ID:         uuid.New(),
		TelegramID: req.TelegramID,
		Username:   req.Username,
		ReferrerID: req.ReferrerID,
	}
	if err := h.userR.Create(r.Context(), user); err != nil {
		h.log.Error("create user failed", "telegram_id", req.TelegramID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// POST /v1/ops/users/{userID}/items
// Mints an item into a user's inventory (event payouts, support).
func (h *Handler) MintItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	var req struct {
		ItemType string `json:"item_type"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if !models.KnownItemType(req.ItemType) || req.ItemType == models.ItemTypeResource {
		http.Error(w, `{"error":"unknown item type"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
		return
	}
	item := &models.GameItem{
		ID:       uuid.New(),
		OwnerID:  userID,
		ItemType: req.ItemType,
		Name:     req.Name,
	}
	if err := h.itemR.Create(r.Context(), item); err != nil {
		h.log.Error("mint item failed", "user_id", userID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// GET /v1/ops/commissions
func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.commissionR.List(r.Context())
	if err != nil {
		h.log.Error("list commissions failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.MarketCommission{}
	}
	writeJSON(w, http.StatusOK, list)
}

// PUT /v1/ops/commissions/{currency}
func (h *Handler) UpsertCommission(w http.ResponseWriter, r *http.Request) {
	currency := r.PathValue("currency")
	if !models.KnownResource(currency) {
		http.Error(w, `{"error":"unknown currency"}`, http.StatusBadRequest)
		return
	}
	var req struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Rate.IsNegative() || req.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		http.Error(w, `{"error":"rate must be in [0,1)"}`, http.StatusBadRequest)
		return
	}
	c := &models.MarketCommission{Currency: currency, Rate: req.Rate}
	if err := h.commissionR.Upsert(r.Context(), c); err != nil {
		h.log.Error("upsert commission failed", "currency", currency, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// POST /v1/ops/users/{userID}/unfreeze
// Manual clearance after operator review of a consistency violation.
func (h *Handler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	if err := h.userR.SetFrozen(r.Context(), userID, false); err != nil {
		h.log.Error("unfreeze failed", "user_id", userID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"frozen": false})
}
