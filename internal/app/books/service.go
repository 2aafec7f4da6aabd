package books

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"library/internal/domain"
	"library/internal/infrastructure/cache"
	"library/internal/repository/books_repo"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 100
)

type BookService interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
}

type bookService struct {
	repo     books_repo.BookRepository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewBookService wraps the catalogue with a search cache. Pass cache.Noop{}
// to disable caching.
func NewBookService(repo books_repo.BookRepository, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) BookService {
	return &bookService{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *bookService) Search(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	limit = clampLimit(limit)
	key := searchKey(query, limit)

	var books []domain.Book
	hit, err := s.cache.Get(ctx, key, &books)
	if err != nil {
		// The cache is best effort; fall through to the database.
		s.logger.Warn("Book search cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return books, nil
	}

	books, err = s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, books, s.cacheTTL); err != nil {
		s.logger.Warn("Book search cache write failed", zap.String("key", key), zap.Error(err))
	}
	return books, nil
}

func (s *bookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.repo.GetByID(ctx, id)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	}
	return limit
}

func searchKey(query string, limit int) string {
	return fmt.Sprintf("books:search:%d:%s", limit, strings.ToLower(query))
}
