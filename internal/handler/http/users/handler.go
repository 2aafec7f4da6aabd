package users_http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"library/internal/app/users"
	"library/internal/domain"
	"library/internal/handler/http/httpx"
	"library/internal/handler/http/middleware"
)

type UserHandler struct {
	service users.UserService
	logger  *zap.Logger
}

func NewUserHandler(s users.UserService, l *zap.Logger) *UserHandler {
	return &UserHandler{service: s, logger: l}
}

// UpdateProfileRequest fields left out of the JSON body are not changed.
type UpdateProfileRequest struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	ProfilePic *string `json:"profilePic"`
}

type UserResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	StudentID  *string `json:"studentId"`
	Role       string  `json:"role"`
	ProfilePic *string `json:"profilePic"`
	Fine       string  `json:"fine"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Address:    u.Address,
		StudentID:  u.StudentID,
		Role:       string(u.Role),
		ProfilePic: u.ProfilePic,
		Fine:       u.Fine.StringFixed(2),
	}
}

func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	user, err := h.service.GetProfile(r.Context(), callerID)
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)}, h.logger)
}

func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	user, err := h.service.GetUserAs(r.Context(), callerID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user), h.logger)
}

func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserIDFromContext(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Invalid request body for profile update", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error(), h.logger)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), callerID, chi.URLParam(r, "id"), domain.ProfileUpdate{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		httpx.WriteDomainError(w, err, h.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user), h.logger)
}
