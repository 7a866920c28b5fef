package handler

import (
	"net/http"

	"trackmeet/internal/app/service"
	"trackmeet/internal/common"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	authService *service.AuthService
	loginGuard  func(http.Handler) http.Handler
}

func NewAdminHandler(as *service.AuthService, loginGuard func(http.Handler) http.Handler) *AdminHandler {
	return &AdminHandler{authService: as, loginGuard: orPassthrough(loginGuard)}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.With(h.loginGuard).Post("/login", h.login)
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	token, err := h.authService.LoginAdmin(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"token": token})
}
