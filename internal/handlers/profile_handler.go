package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/galaktika/backend/internal/middleware"
	"github.com/galaktika/backend/internal/models"
)

// ItemStore is the inventory surface the profile handler reads.
type ItemStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.GameItem, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.GameItem, error)
}

// PurchaseHistory lists the caller's buy attempts.
type PurchaseHistory interface {
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.MarketTransaction, error)
}

// ProfileHandler serves the caller's inventory and purchase history.
type ProfileHandler struct {
	Items     ItemStore
	Purchases PurchaseHistory
	Logger    *slog.Logger
}

// --- GET /v1/items ---

func (h *ProfileHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	items, err := h.Items.ListByOwner(r.Context(), user.ID)
	if err != nil {
		h.Logger.Error("list items", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*models.GameItem{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

// --- GET /v1/items/{id} ---

func (h *ProfileHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid item id"}`, http.StatusBadRequest)
		return
	}
	item, err := h.Items.GetByID(r.Context(), itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("get item", "item_id", itemID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	// Inventory rows are private to their owner.
	if item.OwnerID != user.ID {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(item)
}

// --- GET /v1/transactions ---

func (h *ProfileHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	txs, err := h.Purchases.ListByBuyer(r.Context(), user.ID)
	if err != nil {
		h.Logger.Error("list transactions", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []*models.MarketTransaction{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(txs)
}
