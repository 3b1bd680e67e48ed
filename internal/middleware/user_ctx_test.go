package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/galaktika/backend/internal/models"
)

type mockUserLookup struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUserLookup) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestUserCtx(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "astra"}
	lookup := &mockUserLookup{users: map[uuid.UUID]*models.User{user.ID: user}}

	var seen *models.User
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := UserCtx(lookup)(inner)

	// Resolvable user lands in context.
	req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
	req.Header.Set("X-User-ID", user.ID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if seen == nil || seen.ID != user.ID {
		t.Errorf("context user: got %+v", seen)
	}

	cases := map[string]string{
		"missing header": "",
		"garbage header": "not-a-uuid",
		"unknown user":   uuid.New().String(),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
		if header != "" {
			req.Header.Set("X-User-ID", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: got %d, want 401", name, rec.Code)
		}
	}
}

func TestFrozenGuard(t *testing.T) {
	guard := FrozenGuard()

	// Active user passes through.
	var called bool
	req := httptest.NewRequest(http.MethodPost, "/v1/checkin", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{ID: uuid.New()}))
	rec := httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Errorf("active user: status %d, called %v", rec.Code, called)
	}

	// Frozen user is blocked before the handler runs.
	called = false
	req = httptest.NewRequest(http.MethodPost, "/v1/checkin", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{ID: uuid.New(), IsFrozen: true}))
	rec = httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || called {
		t.Errorf("frozen user: status %d, called %v", rec.Code, called)
	}

	// No user at all.
	called = false
	req = httptest.NewRequest(http.MethodPost, "/v1/checkin", nil)
	rec = httptest.NewRecorder()
	guard(okHandler(&called)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || called {
		t.Errorf("anonymous: status %d, called %v", rec.Code, called)
	}
}
