package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trackmeet/internal/domain/model"
	"trackmeet/internal/domain/repository"
	"trackmeet/internal/platform/metrics"
	"trackmeet/internal/platform/queue"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts = 3
	popTimeout         = 5 * time.Second
	errorBackoff       = 5 * time.Second
)

// AnnouncementSource is the consuming side of the results queue.
type AnnouncementSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*model.Announcement, error)
	Requeue(ctx context.Context, a model.Announcement) error
}

// ResultNotification is the body POSTed to the results webhook, one per placed athlete.
type ResultNotification struct {
	EventID     string     `json:"eventId"`
	EventName   string     `json:"eventName"`
	EventDate   model.Date `json:"eventDate"`
	AthleteID   string     `json:"athleteId"`
	AthleteName string     `json:"athleteName,omitempty"`
	Email       string     `json:"email,omitempty"`
	Position    int        `json:"position"`
	AnnouncedAt time.Time  `json:"announcedAt"`
}

type AnnouncementWorker struct {
	source      AnnouncementSource
	athleteRepo repository.AthleteRepository
	client      *http.Client
	webhookURL  string
	maxAttempts int
	logger      zerolog.Logger
}

// NewAnnouncementWorker delivers to webhookURL; with an empty URL notifications are only logged.
func NewAnnouncementWorker(source AnnouncementSource, athleteRepo repository.AthleteRepository, webhookURL string, logger zerolog.Logger) *AnnouncementWorker {
	return &AnnouncementWorker{
		source:      source,
		athleteRepo: athleteRepo,
		client:      &http.Client{Timeout: 10 * time.Second},
		webhookURL:  webhookURL,
		maxAttempts: defaultMaxAttempts,
		logger:      logger.With().Str("component", "announcement_worker").Logger(),
	}
}

func (w *AnnouncementWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("announcement worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("announcement worker stopping")
			return
		}

		a, err := w.source.Pop(ctx, popTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error().Err(err).Msg("failed to pop announcement")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}

		w.Process(ctx, *a)
	}
}

// Process delivers one announcement, requeueing it on failure until maxAttempts is reached.
func (w *AnnouncementWorker) Process(ctx context.Context, a model.Announcement) {
	err := w.deliver(ctx, &a)
	if err == nil {
		metrics.AnnouncementsDelivered.WithLabelValues("delivered").Inc()
		w.logger.Info().Str("event_id", a.EventID).Int("results", len(a.Results)).Msg("results announcement delivered")
		return
	}

	a.Attempts++
	if a.Attempts >= w.maxAttempts {
		metrics.AnnouncementsDelivered.WithLabelValues("dropped").Inc()
		w.logger.Error().Err(err).Str("event_id", a.EventID).Int("attempts", a.Attempts).Msg("dropping results announcement")
		return
	}

	metrics.AnnouncementsDelivered.WithLabelValues("retried").Inc()
	w.logger.Warn().Err(err).Str("event_id", a.EventID).Int("attempts", a.Attempts).Int("delivered", a.Delivered).Msg("requeueing results announcement")
	if err := w.source.Requeue(ctx, a); err != nil {
		w.logger.Error().Err(err).Str("event_id", a.EventID).Msg("failed to requeue results announcement")
	}
}

// deliver sends the results after a.Delivered in order and advances a.Delivered
// past each one the webhook accepts.
func (w *AnnouncementWorker) deliver(ctx context.Context, a *model.Announcement) error {
	if a.Delivered < 0 || a.Delivered > len(a.Results) {
		a.Delivered = 0
	}
	pending := a.Results[a.Delivered:]
	ids := make([]string, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.AthleteID)
	}
	athletes, err := w.athleteRepo.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve athletes: %w", err)
	}

	for _, r := range pending {
		n := ResultNotification{
			EventID:     a.EventID,
			EventName:   a.EventName,
			EventDate:   a.EventDate,
			AthleteID:   r.AthleteID,
			Position:    r.Position,
			AnnouncedAt: a.AnnouncedAt,
		}
		if athlete, ok := athletes[r.AthleteID]; ok {
			n.AthleteName = athlete.Name
			n.Email = athlete.Email
		}

		if w.webhookURL == "" {
			w.logger.Info().
				Str("event_id", n.EventID).
				Str("athlete_id", n.AthleteID).
				Int("position", n.Position).
				Msg("result notification (no webhook configured)")
		} else if err := w.post(ctx, n); err != nil {
			return err
		}
		a.Delivered++
	}
	return nil
}

func (w *AnnouncementWorker) post(ctx context.Context, n ResultNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
