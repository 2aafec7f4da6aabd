package books_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"library/internal/domain"
)

type BookRepository interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Book, error)
	GetByID(ctx context.Context, id string) (*domain.Book, error)
}

type bookRepository struct {
	db *sqlx.DB
}

func NewBookRepository(db *sqlx.DB) BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, title, author, isbn, category, description, image_url, available, quantity`

// Search matches the query as a case-insensitive substring of title, author
// or category. An empty query lists the catalogue.
func (r *bookRepository) Search(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	books := []domain.Book{}
	query = strings.TrimSpace(query)

	var err error
	if query == "" {
		err = r.db.SelectContext(ctx, &books,
			`SELECT `+bookColumns+` FROM books ORDER BY title ASC LIMIT $1`, limit)
	} else {
		pattern := "%" + escapeLike(query) + "%"
		err = r.db.SelectContext(ctx, &books,
			`SELECT `+bookColumns+` FROM books
			 WHERE title ILIKE $1 OR author ILIKE $1 OR category ILIKE $1
			 ORDER BY title ASC
			 LIMIT $2`, pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search books for %q: %w", query, err)
	}
	return books, nil
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	var book domain.Book
	err := r.db.GetContext(ctx, &book, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	return &book, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
