package handler

import (
	"net/http"

	"trackmeet/internal/api/middleware"
	"trackmeet/internal/app/service"
	"trackmeet/internal/common"

	"github.com/go-chi/chi/v5"
)

type AthleteHandler struct {
	authService    *service.AuthService
	athleteService *service.AthleteService
	loginGuard     func(http.Handler) http.Handler
}

func NewAthleteHandler(as *service.AuthService, aths *service.AthleteService, loginGuard func(http.Handler) http.Handler) *AthleteHandler {
	return &AthleteHandler{authService: as, athleteService: aths, loginGuard: orPassthrough(loginGuard)}
}

func (h *AthleteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.With(h.loginGuard).Post("/login", h.login)

	r.Group(func(athleteRouter chi.Router) {
		athleteRouter.Use(middleware.Authenticator)
		athleteRouter.Use(middleware.AthleteOnly)
		athleteRouter.Get("/profile", h.getProfile)
		athleteRouter.Put("/profile", h.updateProfile)
		athleteRouter.Get("/participation-history", h.participationHistory)
	})

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Get("/all", h.listAthletes)
		adminRouter.Post("/add", h.addAthlete)
		adminRouter.Get("/entity/{id}", h.getAthlete)
		adminRouter.Put("/profile/{id}", h.updateAthlete)
	})
}

func (h *AthleteHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterAthleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	token, err := h.authService.RegisterAthlete(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, common.Envelope{"token": token})
}

func (h *AthleteHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	token, err := h.authService.LoginAthlete(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"token": token})
}

func (h *AthleteHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	athlete, err := h.athleteService.GetProfile(r.Context(), currentAthlete(r).AthleteID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"athlete": athlete})
}

func (h *AthleteHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	athlete, err := h.athleteService.UpdateProfile(r.Context(), currentAthlete(r).AthleteID, req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{
		"message": "Profile Updated Successfully",
		"athlete": athlete,
	})
}

func (h *AthleteHandler) participationHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.athleteService.ParticipationHistory(r.Context(), currentAthlete(r).AthleteID)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"participationHistory": history})
}

func (h *AthleteHandler) listAthletes(w http.ResponseWriter, r *http.Request) {
	athletes, err := h.athleteService.ListAthletes(r.Context())
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"data": athletes})
}

func (h *AthleteHandler) addAthlete(w http.ResponseWriter, r *http.Request) {
	var req service.AddAthleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	athlete, err := h.athleteService.AddAthlete(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, common.Envelope{
		"message": "Entity added successfully",
		"data":    athlete,
	})
}

func (h *AthleteHandler) getAthlete(w http.ResponseWriter, r *http.Request) {
	athlete, err := h.athleteService.GetAthlete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"data": athlete})
}

func (h *AthleteHandler) updateAthlete(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateAthleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	athlete, err := h.athleteService.UpdateAthlete(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{
		"message": "Athlete details updated successfully",
		"data":    athlete,
	})
}
