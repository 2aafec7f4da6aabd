package books_http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/domain"
)

type mockBookService struct {
	SearchFunc  func(ctx context.Context, query string, limit int) ([]domain.Book, error)
	GetBookFunc func(ctx context.Context, id string) (*domain.Book, error)
}

func (m *mockBookService) Search(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	return m.SearchFunc(ctx, query, limit)
}

func (m *mockBookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return m.GetBookFunc(ctx, id)
}

func serve(svc *mockBookService, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearchHandler(t *testing.T) {
	var gotQuery string
	var gotLimit int
	svc := &mockBookService{SearchFunc: func(_ context.Context, q string, limit int) ([]domain.Book, error) {
		gotQuery, gotLimit = q, limit
		return []domain.Book{{ID: "b1", Title: "The Hobbit", Author: "J.R.R. Tolkien", Available: 1, Quantity: 2}}, nil
	}}

	rec := serve(svc, "/api/books?search=hobbit&limit=5")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotQuery != "hobbit" || gotLimit != 5 {
		t.Errorf("Search(%q, %d)", gotQuery, gotLimit)
	}
	var body struct {
		Books []domain.Book `json:"books"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Books) != 1 || body.Books[0].Title != "The Hobbit" {
		t.Errorf("books = %+v", body.Books)
	}
}

func TestSearchHandler_BadLimit(t *testing.T) {
	svc := &mockBookService{SearchFunc: func(context.Context, string, int) ([]domain.Book, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}

	if rec := serve(svc, "/api/books?limit=lots"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetBookHandler_NotFound(t *testing.T) {
	svc := &mockBookService{GetBookFunc: func(context.Context, string) (*domain.Book, error) {
		return nil, domain.ErrBookNotFound
	}}

	if rec := serve(svc, "/api/books/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
