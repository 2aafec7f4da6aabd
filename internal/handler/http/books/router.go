package books_http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/app/books"
)

func RegisterRoutes(r chi.Router, s books.BookService, l *zap.Logger) {
	handler := NewBookHandler(s, l.With(zap.String("component", "BookHTTPHandler")))

	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", handler.SearchHandler)
		r.Get("/{id}", handler.GetBookHandler)
	})
}
