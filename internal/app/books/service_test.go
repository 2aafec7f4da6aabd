package books

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"library/internal/domain"
	"library/internal/infrastructure/cache"
)

type mockBookRepo struct {
	SearchFunc  func(ctx context.Context, query string, limit int) ([]domain.Book, error)
	GetByIDFunc func(ctx context.Context, id string) (*domain.Book, error)

	searchCalls int
	lastLimit   int
}

func (m *mockBookRepo) Search(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	m.searchCalls++
	m.lastLimit = limit
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return []domain.Book{{ID: "b1", Title: "Dune", Author: "Frank Herbert", Available: 2, Quantity: 3}}, nil
}

func (m *mockBookRepo) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrBookNotFound
}

// memCache keeps values as-is; good enough to observe hits.
type memCache struct {
	values map[string][]domain.Book
	getErr error
}

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*(dst.(*[]domain.Book)) = v
	return true, nil
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.values[key] = value.([]domain.Book)
	return nil
}

func TestSearch_LimitClamping(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: DefaultSearchLimit},
		{limit: -5, want: DefaultSearchLimit},
		{limit: 10, want: 10},
		{limit: 500, want: MaxSearchLimit},
	}
	for _, tt := range tests {
		repo := &mockBookRepo{}
		svc := NewBookService(repo, cache.Noop{}, time.Minute, zap.NewNop())
		if _, err := svc.Search(context.Background(), "dune", tt.limit); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if repo.lastLimit != tt.want {
			t.Errorf("limit %d: repo got %d, want %d", tt.limit, repo.lastLimit, tt.want)
		}
	}
}

func TestSearch_UsesCache(t *testing.T) {
	repo := &mockBookRepo{}
	c := &memCache{values: map[string][]domain.Book{}}
	svc := NewBookService(repo, c, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		books, err := svc.Search(context.Background(), "  Dune ", 0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(books) != 1 || books[0].Title != "Dune" {
			t.Errorf("books = %+v", books)
		}
	}
	// Case and surrounding spaces do not split the cache.
	if _, err := svc.Search(context.Background(), "dune", 0); err != nil {
		t.Fatal(err)
	}
	if repo.searchCalls != 1 {
		t.Errorf("repository searched %d times, want 1", repo.searchCalls)
	}
}

func TestSearch_CacheFailureFallsBackToRepository(t *testing.T) {
	repo := &mockBookRepo{}
	c := &memCache{values: map[string][]domain.Book{}, getErr: errors.New("redis down")}
	svc := NewBookService(repo, c, time.Minute, zap.NewNop())

	books, err := svc.Search(context.Background(), "dune", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(books) != 1 {
		t.Errorf("books = %+v", books)
	}
}

func TestSearch_RepositoryError(t *testing.T) {
	boom := errors.New("db gone")
	repo := &mockBookRepo{SearchFunc: func(context.Context, string, int) ([]domain.Book, error) { return nil, boom }}
	svc := NewBookService(repo, cache.Noop{}, time.Minute, zap.NewNop())

	if _, err := svc.Search(context.Background(), "x", 0); !errors.Is(err, boom) {
		t.Errorf("Search() error = %v, want %v", err, boom)
	}
}

func TestGetBook_NotFound(t *testing.T) {
	svc := NewBookService(&mockBookRepo{}, cache.Noop{}, time.Minute, zap.NewNop())

	if _, err := svc.GetBook(context.Background(), "missing"); !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("GetBook() error = %v, want ErrBookNotFound", err)
	}
}
