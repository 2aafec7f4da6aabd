package users_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/app/users"
)

func RegisterRoutes(r chi.Router, s users.UserService, auth func(http.Handler) http.Handler, l *zap.Logger) {
	handler := NewUserHandler(s, l.With(zap.String("component", "UserHTTPHandler")))

	r.With(auth).Get("/api/auth/me", handler.MeHandler)

	r.Route("/api/users", func(r chi.Router) {
		r.Use(auth)
		r.Get("/{id}", handler.GetUserHandler)
		r.Patch("/{id}", handler.UpdateProfileHandler)
	})
}
