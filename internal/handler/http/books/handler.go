package books_http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/app/books"
	"library/internal/handler/http/httpx"
)

type BookHandler struct {
	service books.BookService
	logger  *zap.Logger
}

func NewBookHandler(s books.BookService, l *zap.Logger) *BookHandler {
	return &BookHandler{service: s, logger: l}
}

func (h *BookHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid request", "limit must be a non-negative integer", h.logger)
			return
		}
		limit = n
	}

	found, err := h.service.Search(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"books": found}, h.logger)
}

func (h *BookHandler) GetBookHandler(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, book, h.logger)
}
