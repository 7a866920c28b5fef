package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"trackmeet/internal/common/security"
	"trackmeet/internal/domain/model"
	"trackmeet/internal/domain/repository"
	"trackmeet/internal/platform/database/dbtest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	mu           sync.Mutex
	events       []model.Event
	cached       bool
	generation   int64
	invalidation int
	staleWrites  int
}

func (c *recordingCache) GetEvents(context.Context) ([]model.Event, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events, c.generation, c.cached
}

func (c *recordingCache) SetEvents(_ context.Context, generation int64, events []model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		c.staleWrites++
		return
	}
	c.events, c.cached = events, true
}

func (c *recordingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events, c.cached = nil, false
	c.generation++
	c.invalidation++
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []model.Announcement
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, a model.Announcement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, a)
	return p.err
}

type fixture struct {
	db            *sql.DB
	athletes      repository.AthleteRepository
	events        repository.EventRepository
	cache         *recordingCache
	publisher     *recordingPublisher
	tokens        *security.TokenIssuer
	auth          *AuthService
	athleteSvc    *AthleteService
	eventSvc      *EventService
	participation *ParticipationService
}

const (
	testAdminEmail    = "admin@meet.org"
	testAdminPassword = "s3cret"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.NewSQLite(t)
	logger := zerolog.Nop()

	f := &fixture{
		db:        db,
		athletes:  repository.NewAthleteRepository(db, repository.SQLite),
		events:    repository.NewEventRepository(db, repository.SQLite),
		cache:     &recordingCache{},
		publisher: &recordingPublisher{},
		tokens:    security.NewTokenIssuer([]byte("test-secret")),
	}
	f.auth = NewAuthService(f.athletes, f.tokens, AuthSettings{
		AthleteTokenTTL: 24 * time.Hour,
		AdminTokenTTL:   24 * time.Hour,
		AdminEmail:      testAdminEmail,
		AdminPassword:   testAdminPassword,
	}, logger)
	f.athleteSvc = NewAthleteService(f.athletes, f.events, logger)
	f.eventSvc = NewEventService(f.events, f.athletes, f.cache, logger)
	f.participation = NewParticipationService(db, f.events, f.athletes, f.cache, f.publisher, logger)
	return f
}

// registerAthlete creates an athlete through the public flow and returns its id.
func (f *fixture) registerAthlete(t *testing.T, name, email string) string {
	t.Helper()
	token, err := f.auth.RegisterAthlete(context.Background(), RegisterAthleteRequest{
		Name: name, Email: email, Password: "secret1", Country: "KE",
	})
	require.NoError(t, err)
	identity, err := f.tokens.VerifyToken(token)
	require.NoError(t, err)
	return identity.AthleteID
}

func (f *fixture) createEvent(t *testing.T, name, date string) *model.Event {
	t.Helper()
	event, err := f.eventSvc.CreateEvent(context.Background(), CreateEventRequest{Name: name, Date: date, Venue: "Central Stadium"})
	require.NoError(t, err)
	return event
}
