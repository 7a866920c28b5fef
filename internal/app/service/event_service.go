package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackmeet/internal/common"
	"trackmeet/internal/domain/model"
	"trackmeet/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

type EventService struct {
	eventRepo   repository.EventRepository
	athleteRepo repository.AthleteRepository
	cache       EventCache
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEventService accepts a nil cache; the list is then read from the database every time.
func NewEventService(eventRepo repository.EventRepository, athleteRepo repository.AthleteRepository, cache EventCache, logger zerolog.Logger) *EventService {
	if cache == nil {
		cache = nopEventCache{}
	}
	return &EventService{
		eventRepo:   eventRepo,
		athleteRepo: athleteRepo,
		cache:       cache,
		logger:      logger.With().Str("component", "event_service").Logger(),
		now:         time.Now,
	}
}

type CreateEventRequest struct {
	Name  string `json:"name" validate:"required"`
	Date  string `json:"date" validate:"required"`
	Venue string `json:"venue" validate:"required"`
}

func (s *EventService) CreateEvent(ctx context.Context, req CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Venue = strings.TrimSpace(req.Venue)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, common.ErrInvalidDateFormat
	}

	now := s.now().UTC()
	id := uuid.NewString()
	event := &model.Event{
		ID:           id,
		Slug:         eventSlug(req.Name, id),
		Name:         req.Name,
		Date:         date,
		Venue:        req.Venue,
		Participants: []string{},
		Results:      []model.Result{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.eventRepo.Create(ctx, nil, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.cache.Invalidate(ctx)

	s.logger.Info().Str("event_id", event.ID).Str("slug", event.Slug).Msg("event created")
	return event, nil
}

// eventSlug suffixes the name slug with the head of the id so equal names stay unique.
func eventSlug(name, id string) string {
	base := slug.Make(name)
	suffix := strings.ReplaceAll(id, "-", "")[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, generation, ok := s.cache.GetEvents(ctx)
	if ok {
		return events, nil
	}
	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	s.cache.SetEvents(ctx, generation, events)
	return events, nil
}

// GetEventDetails resolves participants and result names. ref may be an id or a slug.
func (s *EventService) GetEventDetails(ctx context.Context, ref string) (*model.EventDetails, error) {
	event, err := s.findEvent(ctx, ref)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(event.Participants)+len(event.Results))
	ids = append(ids, event.Participants...)
	for _, r := range event.Results {
		ids = append(ids, r.AthleteID)
	}
	athletes, err := s.athleteRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve event athletes: %w", err)
	}

	details := &model.EventDetails{
		ID:           event.ID,
		Slug:         event.Slug,
		Name:         event.Name,
		Date:         event.Date,
		Venue:        event.Venue,
		Participants: make([]model.ParticipantSummary, 0, len(event.Participants)),
		Results:      resultSummaries(event.Results, athletes),
	}
	for _, id := range event.Participants {
		a, ok := athletes[id]
		if !ok {
			continue
		}
		details.Participants = append(details.Participants, model.ParticipantSummary{
			ID:      a.ID,
			Name:    a.Name,
			Email:   a.Email,
			Country: a.Country,
		})
	}
	return details, nil
}

func (s *EventService) findEvent(ctx context.Context, ref string) (*model.Event, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrEventNotFound
	}
	event, err := s.eventRepo.FindByID(ctx, nil, ref)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	event, err = s.eventRepo.FindBySlug(ctx, ref)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return event, nil
}

func resultSummaries(results []model.Result, athletes map[string]*model.Athlete) []model.ResultSummary {
	out := make([]model.ResultSummary, 0, len(results))
	for _, r := range results {
		summary := model.ResultSummary{AthleteID: r.AthleteID, Position: r.Position}
		if a, ok := athletes[r.AthleteID]; ok {
			summary.Name = a.Name
		}
		out = append(out, summary)
	}
	return out
}
