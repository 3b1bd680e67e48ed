package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/galaktika/backend/internal/models"
)

// ----------------------------------------------------------------------------
// Mocks
// ----------------------------------------------------------------------------

type mockItemStore struct {
	items map[uuid.UUID]*models.GameItem
}

func (m *mockItemStore) GetByID(_ context.Context, id uuid.UUID) (*models.GameItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *it
	return &cp, nil
}

func (m *mockItemStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.GameItem, error) {
	var out []*models.GameItem
	for _, it := range m.items {
		if it.OwnerID == ownerID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockHistory struct {
	txs []*models.MarketTransaction
}

func (m *mockHistory) ListByBuyer(_ context.Context, buyerID uuid.UUID) ([]*models.MarketTransaction, error) {
	var out []*models.MarketTransaction
	for _, t := range m.txs {
		if t.BuyerID == buyerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func profileMux(h *ProfileHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/items", h.ListItems)
	mux.HandleFunc("GET /v1/items/{id}", h.GetItem)
	mux.HandleFunc("GET /v1/transactions", h.ListTransactions)
	return mux
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestListItems(t *testing.T) {
	owner := &models.User{ID: uuid.New()}
	other := &models.User{ID: uuid.New()}
	store := &mockItemStore{items: map[uuid.UUID]*models.GameItem{}}
	for i := 0; i < 3; i++ {
		it := &models.GameItem{ID: uuid.New(), OwnerID: owner.ID, ItemType: models.ItemTypeArtifact, Name: "relic"}
		store.items[it.ID] = it
	}
	h := &ProfileHandler{Items: store, Purchases: &mockHistory{}, Logger: slog.New(slog.DiscardHandler)}
	mux := profileMux(h)

	rec := doAs(mux, owner, http.MethodGet, "/v1/items", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []*models.GameItem
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("items = %d, want 3", len(got))
	}

	// A user with no items gets an empty array, not null.
	rec = doAs(mux, other, http.MethodGet, "/v1/items", "")
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("empty inventory body = %q, want []", body)
	}

	rec = doAs(mux, nil, http.MethodGet, "/v1/items", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestGetItemOwnership(t *testing.T) {
	owner := &models.User{ID: uuid.New()}
	stranger := &models.User{ID: uuid.New()}
	item := &models.GameItem{ID: uuid.New(), OwnerID: owner.ID, ItemType: models.ItemTypeGalaxy, Name: "andromeda"}
	store := &mockItemStore{items: map[uuid.UUID]*models.GameItem{item.ID: item}}
	h := &ProfileHandler{Items: store, Purchases: &mockHistory{}, Logger: slog.New(slog.DiscardHandler)}
	mux := profileMux(h)

	rec := doAs(mux, owner, http.MethodGet, "/v1/items/"+item.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rec.Code)
	}
	var got models.GameItem
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "andromeda" {
		t.Fatalf("name = %q", got.Name)
	}

	// Someone else's item looks identical to a missing one.
	rec = doAs(mux, stranger, http.MethodGet, "/v1/items/"+item.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stranger status = %d, want 404", rec.Code)
	}
	rec = doAs(mux, owner, http.MethodGet, "/v1/items/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", rec.Code)
	}
	rec = doAs(mux, owner, http.MethodGet, "/v1/items/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

func TestListTransactionsFiltersByBuyer(t *testing.T) {
	buyer := &models.User{ID: uuid.New()}
	hist := &mockHistory{txs: []*models.MarketTransaction{
		{ID: uuid.New(), OfferID: uuid.New(), BuyerID: buyer.ID, SellerID: uuid.New(), Status: models.MarketTxStatusCompleted},
		{ID: uuid.New(), OfferID: uuid.New(), BuyerID: buyer.ID, SellerID: uuid.New(), Status: models.MarketTxStatusFailed},
		{ID: uuid.New(), OfferID: uuid.New(), BuyerID: uuid.New(), SellerID: uuid.New(), Status: models.MarketTxStatusCompleted},
	}}
	h := &ProfileHandler{Items: &mockItemStore{}, Purchases: hist, Logger: slog.New(slog.DiscardHandler)}
	mux := profileMux(h)

	rec := doAs(mux, buyer, http.MethodGet, "/v1/transactions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []*models.MarketTransaction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("transactions = %d, want 2", len(got))
	}
	for _, tx := range got {
		if tx.BuyerID != buyer.ID {
			t.Fatalf("foreign transaction %s in listing", tx.ID)
		}
	}
}
