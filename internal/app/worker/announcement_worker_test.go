package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"trackmeet/internal/domain/model"
	"trackmeet/internal/domain/repository"
	"trackmeet/internal/platform/database/dbtest"
	"trackmeet/internal/platform/queue"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	mu       sync.Mutex
	items    []model.Announcement
	requeued []model.Announcement
}

func (s *memorySource) Pop(ctx context.Context, _ time.Duration) (*model.Announcement, error) {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
		return nil, queue.ErrEmpty
	}
	defer s.mu.Unlock()
	a := s.items[0]
	s.items = s.items[1:]
	return &a, nil
}

func (s *memorySource) Requeue(_ context.Context, a model.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requeued = append(s.requeued, a)
	return nil
}

func seedAthlete(t *testing.T, repo repository.AthleteRepository, id, name string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), nil, &model.Athlete{
		ID: id, Name: name, Email: id + "@x.com", HashedPassword: "h", Country: "KE",
		Type: model.AthleteTypeAthlete, CreatedAt: now, UpdatedAt: now,
	}))
}

func announcement() model.Announcement {
	return model.Announcement{
		EventID:     "e1",
		EventName:   "100m",
		EventDate:   model.NewDate(2025, time.June, 1),
		Results:     []model.Result{{AthleteID: "a1", Position: 1}, {AthleteID: "a2", Position: 2}},
		AnnouncedAt: time.Now().UTC(),
	}
}

func TestProcessPostsOneNotificationPerResult(t *testing.T) {
	athletes := repository.NewAthleteRepository(dbtest.NewSQLite(t), repository.SQLite)
	seedAthlete(t, athletes, "a1", "Ada")
	seedAthlete(t, athletes, "a2", "Bo")

	var mu sync.Mutex
	var got []ResultNotification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n ResultNotification
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	source := &memorySource{}
	w := NewAnnouncementWorker(source, athletes, srv.URL, zerolog.Nop())
	w.Process(context.Background(), announcement())

	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[0].AthleteName)
	assert.Equal(t, "a1@x.com", got[0].Email)
	assert.Equal(t, 1, got[0].Position)
	assert.Equal(t, "Bo", got[1].AthleteName)
	assert.Equal(t, "100m", got[1].EventName)
	assert.Empty(t, source.requeued)
}

func TestProcessRequeuesUntilMaxAttempts(t *testing.T) {
	athletes := repository.NewAthleteRepository(dbtest.NewSQLite(t), repository.SQLite)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	source := &memorySource{}
	w := NewAnnouncementWorker(source, athletes, srv.URL, zerolog.Nop())

	a := announcement()
	w.Process(context.Background(), a)
	require.Len(t, source.requeued, 1)
	assert.Equal(t, 1, source.requeued[0].Attempts)

	a.Attempts = defaultMaxAttempts - 1
	w.Process(context.Background(), a)
	assert.Len(t, source.requeued, 1)
}

func TestProcessRetryResumesAfterDeliveredResults(t *testing.T) {
	athletes := repository.NewAthleteRepository(dbtest.NewSQLite(t), repository.SQLite)

	var mu sync.Mutex
	var delivered []string
	failSecond := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n ResultNotification
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		defer mu.Unlock()
		if n.AthleteID == "a2" && failSecond {
			failSecond = false
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		delivered = append(delivered, n.AthleteID)
	}))
	defer srv.Close()

	source := &memorySource{}
	w := NewAnnouncementWorker(source, athletes, srv.URL, zerolog.Nop())

	w.Process(context.Background(), announcement())
	require.Len(t, source.requeued, 1)
	assert.Equal(t, 1, source.requeued[0].Delivered)
	assert.Equal(t, []string{"a1"}, delivered)

	w.Process(context.Background(), source.requeued[0])
	assert.Len(t, source.requeued, 1)
	assert.Equal(t, []string{"a1", "a2"}, delivered)
}

func TestProcessWithoutWebhookOnlyLogs(t *testing.T) {
	athletes := repository.NewAthleteRepository(dbtest.NewSQLite(t), repository.SQLite)
	source := &memorySource{}
	w := NewAnnouncementWorker(source, athletes, "", zerolog.Nop())

	w.Process(context.Background(), announcement())
	assert.Empty(t, source.requeued)
}

func TestStartDrainsQueueAndStops(t *testing.T) {
	athletes := repository.NewAthleteRepository(dbtest.NewSQLite(t), repository.SQLite)

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer srv.Close()

	source := &memorySource{items: []model.Announcement{announcement()}}
	w := NewAnnouncementWorker(source, athletes, srv.URL, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
