package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackmeet/internal/common"
	"trackmeet/internal/common/security"
	"trackmeet/internal/domain/model"
	"trackmeet/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AthleteService struct {
	athleteRepo repository.AthleteRepository
	eventRepo   repository.EventRepository
	logger      zerolog.Logger
	now         func() time.Time
}

func NewAthleteService(athleteRepo repository.AthleteRepository, eventRepo repository.EventRepository, logger zerolog.Logger) *AthleteService {
	return &AthleteService{
		athleteRepo: athleteRepo,
		eventRepo:   eventRepo,
		logger:      logger.With().Str("component", "athlete_service").Logger(),
		now:         time.Now,
	}
}

// UpdateProfileRequest is a partial update: empty fields keep the stored value.
type UpdateProfileRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Country string `json:"country"`
	DOB     string `json:"dob"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type AddAthleteRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Country  string `json:"country" validate:"required"`
	DOB      string `json:"dob"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Team     string `json:"team"`
	Type     string `json:"type" validate:"omitempty,oneof=athlete team"`
}

// UpdateAthleteRequest overwrites every field; the optional ones are cleared when empty.
type UpdateAthleteRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Country string `json:"country" validate:"required"`
	DOB     string `json:"dob"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Team    string `json:"team"`
}

func (s *AthleteService) GetProfile(ctx context.Context, athleteID string) (*model.Athlete, error) {
	return s.load(ctx, athleteID, common.ErrAthleteNotFound)
}

func (s *AthleteService) UpdateProfile(ctx context.Context, athleteID string, req UpdateProfileRequest) (*model.Athlete, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var dob model.Date
	if strings.TrimSpace(req.DOB) != "" {
		parsed, err := model.ParseDate(req.DOB)
		if err != nil {
			return nil, common.ErrInvalidDateFormat
		}
		dob = parsed
	}

	athlete, err := s.load(ctx, athleteID, common.ErrAthleteNotFound)
	if err != nil {
		return nil, err
	}

	athlete.Name = coalesce(req.Name, athlete.Name)
	athlete.Email = coalesce(req.Email, athlete.Email)
	athlete.Country = coalesce(req.Country, athlete.Country)
	if !dob.IsZero() {
		athlete.DOB = dob
	}
	athlete.Address = coalesce(req.Address, athlete.Address)
	athlete.Phone = coalesce(req.Phone, athlete.Phone)
	athlete.UpdatedAt = s.now().UTC()

	if err := s.athleteRepo.UpdateProfile(ctx, nil, athlete); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrEmailTaken
		}
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAthleteNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return athlete, nil
}

// ParticipationHistory resolves each entry's event and the names behind its results.
// Entries whose event no longer resolves keep a nil event.
func (s *AthleteService) ParticipationHistory(ctx context.Context, athleteID string) ([]model.HistoryItem, error) {
	athlete, err := s.load(ctx, athleteID, common.ErrAthleteNotFound)
	if err != nil {
		return nil, err
	}

	eventIDs := make([]string, 0, len(athlete.ParticipationHistory))
	for _, entry := range athlete.ParticipationHistory {
		eventIDs = append(eventIDs, entry.EventID)
	}
	events, err := s.eventRepo.FindByIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve history events: %w", err)
	}

	var resultAthleteIDs []string
	for _, e := range events {
		for _, r := range e.Results {
			resultAthleteIDs = append(resultAthleteIDs, r.AthleteID)
		}
	}
	names, err := s.athleteRepo.FindByIDs(ctx, resultAthleteIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve result athletes: %w", err)
	}

	items := make([]model.HistoryItem, 0, len(athlete.ParticipationHistory))
	for _, entry := range athlete.ParticipationHistory {
		item := model.HistoryItem{Result: entry.Result}
		if e, ok := events[entry.EventID]; ok {
			item.Event = &model.EventSummary{
				ID:      e.ID,
				Name:    e.Name,
				Date:    e.Date,
				Venue:   e.Venue,
				Results: resultSummaries(e.Results, names),
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *AthleteService) ListAthletes(ctx context.Context) ([]model.Athlete, error) {
	athletes, err := s.athleteRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list athletes: %w", err)
	}
	return athletes, nil
}

// AddAthlete is the admin path for creating an athlete or a team entry.
func (s *AthleteService) AddAthlete(ctx context.Context, req AddAthleteRequest) (*model.Athlete, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	dob, err := optionalDate(req.DOB)
	if err != nil {
		return nil, err
	}

	if _, err := s.athleteRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.ErrEntityExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up athlete: %w", err)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	kind := coalesce(req.Type, model.AthleteTypeAthlete)
	team := ""
	if kind == model.AthleteTypeTeam {
		team = req.Team
	}
	now := s.now().UTC()
	athlete := &model.Athlete{
		ID:                   uuid.NewString(),
		Name:                 req.Name,
		Email:                req.Email,
		HashedPassword:       hashedPassword,
		Country:              req.Country,
		DOB:                  dob,
		Address:              req.Address,
		Phone:                req.Phone,
		Team:                 team,
		Type:                 kind,
		ParticipationHistory: []model.ParticipationEntry{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.athleteRepo.Create(ctx, nil, athlete); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrEntityExists
		}
		return nil, fmt.Errorf("failed to add athlete: %w", err)
	}

	s.logger.Info().Str("athlete_id", athlete.ID).Str("type", athlete.Type).Msg("entity added")
	return athlete, nil
}

func (s *AthleteService) GetAthlete(ctx context.Context, id string) (*model.Athlete, error) {
	return s.load(ctx, id, common.ErrEntityNotFound)
}

func (s *AthleteService) UpdateAthlete(ctx context.Context, id string, req UpdateAthleteRequest) (*model.Athlete, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	dob, err := optionalDate(req.DOB)
	if err != nil {
		return nil, err
	}

	athlete, err := s.load(ctx, id, common.ErrAthleteNotFound)
	if err != nil {
		return nil, err
	}
	athlete.Name = req.Name
	athlete.Email = req.Email
	athlete.Country = req.Country
	athlete.DOB = dob
	athlete.Address = req.Address
	athlete.Phone = req.Phone
	athlete.Team = req.Team
	athlete.UpdatedAt = s.now().UTC()

	if err := s.athleteRepo.UpdateProfile(ctx, nil, athlete); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrEntityExists
		}
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAthleteNotFound
		}
		return nil, fmt.Errorf("failed to update athlete: %w", err)
	}
	return athlete, nil
}

func (s *AthleteService) load(ctx context.Context, id string, notFound error) (*model.Athlete, error) {
	athlete, err := s.athleteRepo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to load athlete: %w", err)
	}
	return athlete, nil
}

func coalesce(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func optionalDate(s string) (model.Date, error) {
	if strings.TrimSpace(s) == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, common.ErrInvalidDateFormat
	}
	return d, nil
}
