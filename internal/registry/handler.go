package registry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/galaktika/backend/internal/middleware"
	"github.com/galaktika/backend/internal/models"
	"github.com/galaktika/backend/internal/repository"
)

// Request/response structs use snake_case JSON. Amounts travel as JSON
// numbers or strings; decimal.Decimal accepts both.

type CreateOfferRequest struct {
	ItemType  string           `json:"item_type" validate:"required"`
	ItemID    *uuid.UUID       `json:"item_id,omitempty"`
	Resource  *string          `json:"resource,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Price     decimal.Decimal  `json:"price" validate:"required"`
	Currency  string           `json:"currency" validate:"required"`
	OfferType string           `json:"offer_type" validate:"omitempty,oneof=SYSTEM P2P PERSONAL"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

type Handler struct {
	svc      Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(svc Service, validate *validator.Validate, log *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validate, log: log}
}

// CreateOffer handles POST /v1/offers.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if req.OfferType == "" {
		req.OfferType = models.OfferTypeP2P
	}

	offer, err := h.svc.CreateOffer(r.Context(), user.ID, CreateOfferInput{
		ItemType:  req.ItemType,
		ItemID:    req.ItemID,
		Resource:  req.Resource,
		Amount:    req.Amount,
		Price:     req.Price,
		Currency:  req.Currency,
		OfferType: req.OfferType,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		h.writeErr(w, "create offer", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(offer)
}

// CancelOffer handles POST /v1/offers/{id}/cancel.
func (h *Handler) CancelOffer(w http.ResponseWriter, r *http.Request) {
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
	offer, err := h.svc.CancelOffer(r.Context(), offerID, user.ID)
	if err != nil {
		h.writeErr(w, "cancel offer", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(offer)
}

// ListOffers handles GET /v1/offers with optional item_type and
// currency filters.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offers, err := h.svc.ListActive(r.Context(), q.Get("item_type"), q.Get("currency"), 0)
	if err != nil {
		h.log.Error("list offers", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if offers == nil {
		offers = []*models.MarketOffer{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(offers)
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidOffer):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
	case errors.Is(err, ErrNotSeller):
		http.Error(w, `{"error":"offer does not belong to caller"}`, http.StatusForbidden)
	case errors.Is(err, ErrOfferNotCancellable):
		http.Error(w, `{"error":"offer not cancellable"}`, http.StatusConflict)
	case errors.Is(err, repository.ErrInsufficientFunds):
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
	case errors.Is(err, repository.ErrItemNotOwned):
		http.Error(w, `{"error":"item not owned"}`, http.StatusConflict)
	default:
		h.log.Error(op, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
