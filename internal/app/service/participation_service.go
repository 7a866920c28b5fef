package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"trackmeet/internal/common"
	"trackmeet/internal/domain/model"
	"trackmeet/internal/domain/repository"
	"trackmeet/internal/platform/metrics"

	"github.com/rs/zerolog"
)

// ParticipationService keeps Event.Participants/Results and Athlete.ParticipationHistory
// in step. Each operation runs in one transaction that locks the event row first and
// then the athlete rows in id order.
type ParticipationService struct {
	db          *sql.DB
	eventRepo   repository.EventRepository
	athleteRepo repository.AthleteRepository
	cache       EventCache
	publisher   AnnouncementPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

func NewParticipationService(
	db *sql.DB,
	eventRepo repository.EventRepository,
	athleteRepo repository.AthleteRepository,
	cache EventCache,
	publisher AnnouncementPublisher,
	logger zerolog.Logger,
) *ParticipationService {
	if cache == nil {
		cache = nopEventCache{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &ParticipationService{
		db:          db,
		eventRepo:   eventRepo,
		athleteRepo: athleteRepo,
		cache:       cache,
		publisher:   publisher,
		logger:      logger.With().Str("component", "participation_service").Logger(),
		now:         time.Now,
	}
}

type RegistrationRequest struct {
	EventID string `json:"eventId" validate:"required"`
}

type AnnounceResultsRequest struct {
	EventID string         `json:"eventId" validate:"required"`
	Results []model.Result `json:"results" validate:"required"`
}

func (s *ParticipationService) Register(ctx context.Context, athleteID string, req RegistrationRequest) error {
	err := s.register(ctx, athleteID, req)
	metrics.ObserveParticipation("register", err)
	return err
}

func (s *ParticipationService) register(ctx context.Context, athleteID string, req RegistrationRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		event, err := s.lockEvent(ctx, tx, req.EventID)
		if err != nil {
			return err
		}
		athlete, err := s.athleteRepo.FindByIDForUpdate(ctx, tx, athleteID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrAthleteNotFound
			}
			return fmt.Errorf("failed to load athlete: %w", err)
		}

		if !event.AddParticipant(athleteID) {
			return common.ErrAlreadyRegistered
		}
		now := s.now().UTC()
		event.UpdatedAt = now
		if err := s.eventRepo.Update(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}

		if athlete.AddParticipation(event.ID) {
			athlete.UpdatedAt = now
			if err := s.athleteRepo.Update(ctx, tx, athlete); err != nil {
				return fmt.Errorf("failed to save athlete history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info().Str("athlete_id", athleteID).Str("event_id", req.EventID).Msg("athlete registered for event")
	return nil
}

func (s *ParticipationService) Cancel(ctx context.Context, athleteID string, req RegistrationRequest) error {
	err := s.cancel(ctx, athleteID, req)
	metrics.ObserveParticipation("cancel", err)
	return err
}

func (s *ParticipationService) cancel(ctx context.Context, athleteID string, req RegistrationRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		event, err := s.lockEvent(ctx, tx, req.EventID)
		if err != nil {
			return err
		}
		if !event.RemoveParticipant(athleteID) {
			return common.ErrNotRegistered
		}
		now := s.now().UTC()
		event.UpdatedAt = now
		if err := s.eventRepo.Update(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}

		athlete, err := s.athleteRepo.FindByIDForUpdate(ctx, tx, athleteID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// Roster entry without an athlete record: nothing to mirror.
				return nil
			}
			return fmt.Errorf("failed to load athlete: %w", err)
		}
		athlete.RemoveParticipation(event.ID)
		athlete.UpdatedAt = now
		if err := s.athleteRepo.Update(ctx, tx, athlete); err != nil {
			return fmt.Errorf("failed to save athlete history: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info().Str("athlete_id", athleteID).Str("event_id", req.EventID).Msg("event registration cancelled")
	return nil
}

// AnnounceResults replaces the event's results wholesale and mirrors each position into
// the athlete's history. Athletes outside the roster get a history entry appended.
func (s *ParticipationService) AnnounceResults(ctx context.Context, req AnnounceResultsRequest) error {
	err := s.announceResults(ctx, req)
	metrics.ObserveParticipation("announce", err)
	return err
}

func (s *ParticipationService) announceResults(ctx context.Context, req AnnounceResultsRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	if err := checkResults(req.Results); err != nil {
		return err
	}

	var announcement model.Announcement
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		event, err := s.lockEvent(ctx, tx, req.EventID)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(req.Results))
		for _, r := range req.Results {
			ids = append(ids, r.AthleteID)
		}
		sort.Strings(ids)
		locked := make(map[string]*model.Athlete, len(ids))
		for _, id := range ids {
			athlete, err := s.athleteRepo.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewError(common.ErrNotFound, "Athlete not found: "+id)
				}
				return fmt.Errorf("failed to load athlete %s: %w", id, err)
			}
			locked[id] = athlete
		}
		athletes := make([]*model.Athlete, 0, len(req.Results))
		for _, r := range req.Results {
			athletes = append(athletes, locked[r.AthleteID])
		}

		now := s.now().UTC()
		event.Results = append([]model.Result{}, req.Results...)
		event.UpdatedAt = now
		if err := s.eventRepo.Update(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}

		for i, athlete := range athletes {
			athlete.SetResult(event.ID, req.Results[i].Position)
			athlete.UpdatedAt = now
			if err := s.athleteRepo.Update(ctx, tx, athlete); err != nil {
				return fmt.Errorf("failed to save athlete %s result: %w", athlete.ID, err)
			}
		}

		announcement = model.Announcement{
			EventID:     event.ID,
			EventName:   event.Name,
			EventDate:   event.Date,
			Results:     event.Results,
			AnnouncedAt: now,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	if err := s.publisher.Publish(ctx, announcement); err != nil {
		s.logger.Error().Err(err).Str("event_id", announcement.EventID).Msg("failed to queue results announcement")
	}
	s.logger.Info().Str("event_id", announcement.EventID).Int("results", len(announcement.Results)).Msg("results announced")
	return nil
}

// checkResults rejects non-positive positions and athletes listed twice. Ties are allowed.
func checkResults(results []model.Result) error {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.AthleteID == "" {
			return common.Validationf("athleteId is required for every result")
		}
		if r.Position <= 0 {
			return common.Validationf("position must be greater than 0")
		}
		if _, dup := seen[r.AthleteID]; dup {
			return common.Validationf("athlete %s is listed more than once", r.AthleteID)
		}
		seen[r.AthleteID] = struct{}{}
	}
	return nil
}

func (s *ParticipationService) lockEvent(ctx context.Context, tx *sql.Tx, eventID string) (*model.Event, error) {
	event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return event, nil
}

func (s *ParticipationService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
