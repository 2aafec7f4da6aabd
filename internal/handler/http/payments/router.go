package payments_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/app/payments"
)

// RegisterRoutes mounts the payment endpoints. The status endpoint is called
// by the gateway and the returning browser, so it is not behind auth.
func RegisterRoutes(r chi.Router, s payments.PaymentService, auth func(http.Handler) http.Handler, l *zap.Logger) {
	handler := NewPaymentHandler(s, l.With(zap.String("component", "PaymentHTTPHandler")))

	r.Route("/api/payment", func(r chi.Router) {
		r.With(auth).Post("/fine", handler.InitiateFinePaymentHandler)
		r.Get("/status", handler.PaymentStatusHandler)
		r.Post("/status", handler.PaymentStatusHandler)
	})

	r.Route("/api/payments", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", handler.ListPaymentsHandler)
		r.Get("/{id}", handler.GetPaymentHandler)
	})
}
