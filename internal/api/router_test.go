package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trackmeet/internal/app/service"
	"trackmeet/internal/common/security"
	"trackmeet/internal/domain/repository"
	"trackmeet/internal/platform/database/dbtest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@meet.org"
	adminPassword = "s3cret"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	tokens  *security.TokenIssuer
}

func newTestServer(t *testing.T, loginPerMinute int) *testServer {
	t.Helper()
	db := dbtest.NewSQLite(t)
	logger := zerolog.Nop()
	athletes := repository.NewAthleteRepository(db, repository.SQLite)
	events := repository.NewEventRepository(db, repository.SQLite)
	tokens := security.NewTokenIssuer([]byte("router-test-secret"))

	svc := Services{
		Auth: service.NewAuthService(athletes, tokens, service.AuthSettings{
			AthleteTokenTTL: 24 * time.Hour,
			AdminTokenTTL:   24 * time.Hour,
			AdminEmail:      adminEmail,
			AdminPassword:   adminPassword,
		}, logger),
		Athletes:      service.NewAthleteService(athletes, events, logger),
		Events:        service.NewEventService(events, athletes, nil, logger),
		Participation: service.NewParticipationService(db, events, athletes, nil, nil, logger),
	}
	return &testServer{
		t:      t,
		tokens: tokens,
		handler: NewRouter(svc, RouterOptions{
			Tokens:         tokens,
			Logger:         logger,
			LoginPerMinute: loginPerMinute,
		}),
	}
}

type response struct {
	Code int
	Body map[string]interface{}
}

// do sends body as JSON. header names the auth header to use: "bearer", "token" or "cookie".
func (s *testServer) do(method, path, token, header string, body interface{}) response {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		switch header {
		case "token":
			req.Header.Set("token", token)
		case "cookie":
			req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
		default:
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	out := response{Code: rec.Code}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out.Body))
	}
	return out
}

func (s *testServer) registerAthlete(name, email string) string {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/athletes/register", "", "", map[string]string{
		"name": name, "email": email, "password": "secret1", "country": "KE",
	})
	require.Equal(s.t, http.StatusCreated, res.Code, res.Body)
	assert.Equal(s.t, true, res.Body["success"])
	return res.Body["token"].(string)
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/admin/login", "", "", map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(s.t, http.StatusOK, res.Code, res.Body)
	return res.Body["token"].(string)
}

func (s *testServer) athleteID(token string) string {
	s.t.Helper()
	identity, err := s.tokens.VerifyToken(token)
	require.NoError(s.t, err)
	return identity.AthleteID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestEndToEndResultsFlow(t *testing.T) {
	s := newTestServer(t, 0)
	athleteToken := s.registerAthlete("Ada", "ada@x.com")
	athleteID := s.athleteID(athleteToken)
	admin := s.adminToken()

	created := s.do(http.MethodPost, "/api/events/create", admin, "", map[string]string{
		"name": "100m", "date": "01-06-2025", "venue": "Stadium",
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body)
	event := created.Body["event"].(map[string]interface{})
	eventID := event["id"].(string)
	assert.Equal(t, "01-06-2025", event["date"])

	listed := s.do(http.MethodGet, "/api/events", "", "", nil)
	require.Equal(t, http.StatusOK, listed.Code)
	assert.Len(t, listed.Body["events"], 1)

	reg := s.do(http.MethodPost, "/api/events/register", athleteToken, "token", map[string]string{"eventId": eventID})
	require.Equal(t, http.StatusOK, reg.Code, reg.Body)
	assert.Equal(t, "Registered successfully", reg.Body["message"])

	again := s.do(http.MethodPost, "/api/events/register", athleteToken, "", map[string]string{"eventId": eventID})
	assert.Equal(t, http.StatusConflict, again.Code)
	assert.Equal(t, false, again.Body["success"])
	assert.Equal(t, "Already registered for this event", again.Body["message"])

	announce := s.do(http.MethodPost, "/api/events/announce", admin, "", map[string]interface{}{
		"eventId": eventID,
		"results": []map[string]interface{}{{"athleteId": athleteID, "position": 1}},
	})
	require.Equal(t, http.StatusOK, announce.Code, announce.Body)
	assert.Equal(t, "Results updated successfully", announce.Body["message"])

	details := s.do(http.MethodGet, "/api/events/"+eventID, admin, "", nil)
	require.Equal(t, http.StatusOK, details.Code)
	detailEvent := details.Body["event"].(map[string]interface{})
	participants := detailEvent["participants"].([]interface{})
	require.Len(t, participants, 1)
	assert.Equal(t, "Ada", participants[0].(map[string]interface{})["name"])

	history := s.do(http.MethodGet, "/api/athletes/participation-history", athleteToken, "cookie", nil)
	require.Equal(t, http.StatusOK, history.Code, history.Body)
	entries := history.Body["participationHistory"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, float64(1), entry["result"])
	resolved := entry["eventId"].(map[string]interface{})
	assert.Equal(t, "100m", resolved["name"])
	results := resolved["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "Ada", results[0].(map[string]interface{})["name"])
}

func TestProfileRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.registerAthlete("Ada", "ada@x.com")

	profile := s.do(http.MethodGet, "/api/athletes/profile", token, "", nil)
	require.Equal(t, http.StatusOK, profile.Code)
	athlete := profile.Body["athlete"].(map[string]interface{})
	assert.Equal(t, "ada@x.com", athlete["email"])
	assert.NotContains(t, athlete, "password")
	assert.NotContains(t, athlete, "HashedPassword")

	updated := s.do(http.MethodPut, "/api/athletes/profile", token, "", map[string]string{"dob": "15-03-2001", "name": ""})
	require.Equal(t, http.StatusOK, updated.Code, updated.Body)
	assert.Equal(t, "Profile Updated Successfully", updated.Body["message"])
	athlete = updated.Body["athlete"].(map[string]interface{})
	assert.Equal(t, "15-03-2001", athlete["dob"])
	assert.Equal(t, "Ada", athlete["name"])

	bad := s.do(http.MethodPut, "/api/athletes/profile", token, "", map[string]string{"dob": "2001-03-15"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "Invalid date format. Please use DD-MM-YYYY.", bad.Body["message"])
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t, 0)
	athleteToken := s.registerAthlete("Ada", "ada@x.com")
	admin := s.adminToken()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token on athlete route", http.MethodGet, "/api/athletes/profile", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/athletes/profile", "not-a-jwt", http.StatusUnauthorized},
		{"admin token on athlete route", http.MethodGet, "/api/athletes/profile", admin, http.StatusForbidden},
		{"athlete token on admin route", http.MethodGet, "/api/athletes/all", athleteToken, http.StatusForbidden},
		{"no token on admin route", http.MethodPost, "/api/events/create", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(tt.method, tt.path, tt.token, "", nil)
			assert.Equal(t, tt.want, res.Code)
			assert.Equal(t, false, res.Body["success"])
		})
	}

	foreign := security.NewTokenIssuer([]byte("someone-else"))
	forged, err := foreign.GenerateToken("admin@meet.org", security.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/athletes/all", forged, "", nil).Code)
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t, 0)
	s.registerAthlete("Ada", "ada@x.com")

	wrong := s.do(http.MethodPost, "/api/athletes/login", "", "", map[string]string{"email": "ada@x.com", "password": "nope"})
	unknown := s.do(http.MethodPost, "/api/athletes/login", "", "", map[string]string{"email": "who@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Body, unknown.Body)
	assert.Equal(t, "Invalid credentials", wrong.Body["message"])

	admin := s.do(http.MethodPost, "/api/admin/login", "", "", map[string]string{"email": adminEmail, "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, admin.Code)

	dup := s.do(http.MethodPost, "/api/athletes/register", "", "", map[string]string{
		"name": "Ada", "email": "ada@x.com", "password": "secret1", "country": "KE",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "Athlete already exists", dup.Body["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/athletes/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	body := map[string]string{"email": "who@x.com", "password": "nope"}

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/athletes/login", "", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/athletes/login", "", "", body).Code)
	limited := s.do(http.MethodPost, "/api/athletes/login", "", "", body)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, false, limited.Body["success"])

	// Registration is not throttled.
	s.registerAthlete("Ada", "ada@x.com")
}

func TestAdminAthleteManagement(t *testing.T) {
	s := newTestServer(t, 0)
	admin := s.adminToken()

	empty := s.do(http.MethodGet, "/api/athletes/all", admin, "", nil)
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Empty(t, empty.Body["data"])

	added := s.do(http.MethodPost, "/api/athletes/add", admin, "", map[string]string{
		"name": "Falcons", "email": "falcons@x.com", "password": "pw", "country": "GH", "type": "team", "team": "Falcons AC",
	})
	require.Equal(t, http.StatusCreated, added.Code, added.Body)
	assert.Equal(t, "Entity added successfully", added.Body["message"])
	id := added.Body["data"].(map[string]interface{})["id"].(string)

	dup := s.do(http.MethodPost, "/api/athletes/add", admin, "", map[string]string{
		"name": "Again", "email": "falcons@x.com", "password": "pw", "country": "GH",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "Entity with this email already exists.", dup.Body["message"])

	missing := s.do(http.MethodPost, "/api/athletes/add", admin, "", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Equal(t, "Please provide all required fields.", missing.Body["message"])

	got := s.do(http.MethodGet, "/api/athletes/entity/"+id, admin, "", nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, "Falcons AC", got.Body["data"].(map[string]interface{})["team"])

	notFound := s.do(http.MethodGet, "/api/athletes/entity/nope", admin, "", nil)
	assert.Equal(t, http.StatusNotFound, notFound.Code)
	assert.Equal(t, "Entity not found.", notFound.Body["message"])

	updated := s.do(http.MethodPut, "/api/athletes/profile/"+id, admin, "", map[string]string{
		"name": "Falcons Club", "email": "falcons@x.com", "country": "GH",
	})
	require.Equal(t, http.StatusOK, updated.Code, updated.Body)
	assert.Equal(t, "Athlete details updated successfully", updated.Body["message"])
	assert.Equal(t, "Falcons Club", updated.Body["data"].(map[string]interface{})["name"])

	all := s.do(http.MethodGet, "/api/athletes/all", admin, "", nil)
	assert.Len(t, all.Body["data"], 1)
}

func TestEventErrors(t *testing.T) {
	s := newTestServer(t, 0)
	athleteToken := s.registerAthlete("Ada", "ada@x.com")
	admin := s.adminToken()

	cancel := s.do(http.MethodPost, "/api/events/cancel", athleteToken, "", map[string]string{"eventId": "nope"})
	assert.Equal(t, http.StatusNotFound, cancel.Code)
	assert.Equal(t, "Event not found", cancel.Body["message"])

	badDate := s.do(http.MethodPost, "/api/events/create", admin, "", map[string]string{
		"name": "Relay", "date": "June 1", "venue": "Track",
	})
	assert.Equal(t, http.StatusBadRequest, badDate.Code)

	missing := s.do(http.MethodGet, "/api/events/nope", admin, "", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
