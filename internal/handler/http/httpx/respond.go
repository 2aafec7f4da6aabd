// Package httpx holds the JSON response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"library/internal/domain"
	"library/internal/gateway"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

// WriteRawJSON writes body unchanged.
func WriteRawJSON(w http.ResponseWriter, status int, body []byte, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Error("Failed to write response body", zap.Error(err))
	}
}

func WriteError(w http.ResponseWriter, status int, message, details string, logger *zap.Logger) {
	WriteJSON(w, status, ErrorResponse{Error: message, Details: details}, logger)
}

// WriteDomainError maps err onto a status code and writes it. Unexpected
// errors are logged and reported without detail.
func WriteDomainError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, message := Classify(err)
	details := ""
	var gwErr *gateway.Error
	switch {
	case errors.As(err, &gwErr):
		details = gwErr.Detail()
	case status == http.StatusBadRequest:
		details = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug(message, zap.Int("status", status), zap.Error(err))
	}
	WriteError(w, status, message, details, logger)
}

func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidTransactionID),
		errors.Is(err, domain.ErrInvalidProfile):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound, "Payment not found"
	case errors.Is(err, domain.ErrBookNotFound):
		return http.StatusNotFound, "Book not found"
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return http.StatusConflict, "Transaction id already used"
	case gateway.IsUpstreamFailure(err):
		return http.StatusBadGateway, "Payment gateway error"
	}
	return http.StatusInternalServerError, "Internal server error"
}
