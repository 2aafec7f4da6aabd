package payments_http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/app/payments"
	"library/internal/domain"
	"library/internal/handler/http/httpx"
	"library/internal/handler/http/middleware"
)

type PaymentHandler struct {
	service payments.PaymentService
	logger  *zap.Logger
}

func NewPaymentHandler(s payments.PaymentService, l *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: s, logger: l}
}

type InitiateFinePaymentRequest struct {
	TransactionID string `json:"transactionId"`
}

type PaymentResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId,omitempty"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

func toPaymentResponse(p *domain.PaymentRecord, withOwner bool) PaymentResponse {
	resp := PaymentResponse{
		ID:        p.ID,
		Amount:    p.Amount.StringFixed(2),
		Status:    string(p.Status),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
	if withOwner {
		resp.UserID = p.UserID
		resp.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// InitiateFinePaymentHandler starts a gateway payment for the caller's whole
// fine and relays the gateway response body unchanged.
func (h *PaymentHandler) InitiateFinePaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req InitiateFinePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Invalid request body for fine payment", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error(), h.logger)
		return
	}
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.TransactionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", "transactionId is required", h.logger)
		return
	}

	resp, err := h.service.InitiateFinePayment(r.Context(), userID, req.TransactionID)
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}

	if len(resp.Raw) > 0 {
		httpx.WriteRawJSON(w, http.StatusOK, resp.Raw, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp, h.logger)
}

// PaymentStatusHandler is the gateway's redirect and callback target. The
// request body is ignored; the outcome is fetched from the gateway.
func (h *PaymentHandler) PaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	txID := r.URL.Query().Get("id")
	if txID == "" {
		txID = r.FormValue("transactionId")
	}
	if txID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", "id is required", h.logger)
		return
	}

	record, err := h.service.ReconcilePayment(r.Context(), txID)
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(record, false), h.logger)
}

func (h *PaymentHandler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	record, err := h.service.GetPayment(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(record, true), h.logger)
}

func (h *PaymentHandler) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	records, err := h.service.ListPayments(r.Context(), userID)
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	resp := make([]PaymentResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toPaymentResponse(&records[i], true))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"payments": resp}, h.logger)
}
