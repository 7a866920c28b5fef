package handler

import (
	"net/http"

	"trackmeet/internal/api/middleware"
	"trackmeet/internal/app/service"
	"trackmeet/internal/common"

	"github.com/go-chi/chi/v5"
)

type EventHandler struct {
	eventService         *service.EventService
	participationService *service.ParticipationService
}

func NewEventHandler(es *service.EventService, ps *service.ParticipationService) *EventHandler {
	return &EventHandler{eventService: es, participationService: ps}
}

func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listEvents) // GET /api/events

	r.Group(func(athleteRouter chi.Router) {
		athleteRouter.Use(middleware.Authenticator)
		athleteRouter.Use(middleware.AthleteOnly)
		athleteRouter.Post("/register", h.register)
		athleteRouter.Post("/cancel", h.cancel)
	})

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/create", h.createEvent)
		adminRouter.Post("/announce", h.announceResults)
		adminRouter.Get("/{eventId}", h.getEvent) // id or slug
	})
}

func (h *EventHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListEvents(r.Context())
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"events": events})
}

func (h *EventHandler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	event, err := h.eventService.CreateEvent(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, common.Envelope{"event": event})
}

func (h *EventHandler) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEventDetails(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"event": event})
}

func (h *EventHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	if err := h.participationService.Register(r.Context(), currentAthlete(r).AthleteID, req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"message": "Registered successfully"})
}

func (h *EventHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req service.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	if err := h.participationService.Cancel(r.Context(), currentAthlete(r).AthleteID, req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"message": "Registration canceled"})
}

func (h *EventHandler) announceResults(w http.ResponseWriter, r *http.Request) {
	var req service.AnnounceResultsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	if err := h.participationService.AnnounceResults(r.Context(), req); err != nil {
		common.RespondWithErr(w, r, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, common.Envelope{"message": "Results updated successfully"})
}
