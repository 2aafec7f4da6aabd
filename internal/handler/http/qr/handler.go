package qr_http

import (
	"net/http"

	"go.uber.org/zap"

	"library/internal/app/books"
	"library/internal/app/users"
	"library/internal/handler/http/httpx"
	"library/internal/handler/http/middleware"
	"library/internal/qr"
)

type QRHandler struct {
	users  users.UserService
	books  books.BookService
	logger *zap.Logger
}

func NewQRHandler(u users.UserService, b books.BookService, l *zap.Logger) *QRHandler {
	return &QRHandler{users: u, books: b, logger: l}
}

type EncodeResponse struct {
	Data    string `json:"data"`
	DataURI string `json:"dataUri"`
}

type DecodeResponse struct {
	Payload *qr.Payload `json:"payload"`
}

// EncodeHandler renders ?data= as a QR image. An image that cannot be
// rendered comes back as an empty dataUri.
func (h *QRHandler) EncodeHandler(w http.ResponseWriter, r *http.Request) {
	data := r.URL.Query().Get("data")
	if data == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", "data is required", h.logger)
		return
	}
	uri := qr.Encode(data)
	if uri == "" {
		h.logger.Warn("QR encoding produced no image", zap.Int("data_len", len(data)))
	}
	httpx.WriteJSON(w, http.StatusOK, EncodeResponse{Data: data, DataURI: uri}, h.logger)
}

// MyCodeHandler renders the caller's library card code.
func (h *QRHandler) MyCodeHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())
	data := qr.UserMarker(callerID)
	httpx.WriteJSON(w, http.StatusOK, EncodeResponse{Data: data, DataURI: qr.Encode(data)}, h.logger)
}

func (h *QRHandler) DecodeHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, DecodeResponse{Payload: qr.Decode(r.URL.Query().Get("data"))}, h.logger)
}

// ResolveHandler decodes scanned text and looks up the user or book it names.
func (h *QRHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	payload := qr.Decode(r.URL.Query().Get("data"))
	if payload == nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", "not a library QR code", h.logger)
		return
	}
	if payload.ID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", "QR code carries no id", h.logger)
		return
	}

	switch payload.Kind {
	case qr.KindUser:
		callerID, _ := middleware.UserIDFromContext(r.Context())
		user, err := h.users.GetUserAs(r.Context(), callerID, payload.ID)
		if err != nil {
			httpx.WriteDomainError(w, err, h.logger)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"type": payload.Kind,
			"user": map[string]any{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"fine":  user.Fine.StringFixed(2),
			},
		}, h.logger)
	case qr.KindBook:
		book, err := h.books.GetBook(r.Context(), payload.ID)
		if err != nil {
			httpx.WriteDomainError(w, err, h.logger)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"type": payload.Kind, "book": book}, h.logger)
	}
}
