package qr_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/app/books"
	"library/internal/app/users"
)

func RegisterRoutes(r chi.Router, u users.UserService, b books.BookService, auth func(http.Handler) http.Handler, l *zap.Logger) {
	handler := NewQRHandler(u, b, l.With(zap.String("component", "QRHTTPHandler")))

	r.Route("/api/qr", func(r chi.Router) {
		r.Get("/", handler.EncodeHandler)
		r.Get("/decode", handler.DecodeHandler)
		r.With(auth).Get("/me", handler.MyCodeHandler)
		r.With(auth).Get("/resolve", handler.ResolveHandler)
	})
}
