package model

import "time"

type Result struct {
	AthleteID string `json:"athleteId"`
	Position  int    `json:"position"`
}

type Event struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Date         Date      `json:"date"`
	Venue        string    `json:"venue"`
	Participants []string  `json:"participants"`
	Results      []Result  `json:"results"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (e *Event) HasParticipant(athleteID string) bool {
	for _, id := range e.Participants {
		if id == athleteID {
			return true
		}
	}
	return false
}

// AddParticipant appends athleteID; it reports false if already present.
func (e *Event) AddParticipant(athleteID string) bool {
	if e.HasParticipant(athleteID) {
		return false
	}
	e.Participants = append(e.Participants, athleteID)
	return true
}

// RemoveParticipant reports false if athleteID was not a participant.
func (e *Event) RemoveParticipant(athleteID string) bool {
	for i, id := range e.Participants {
		if id == athleteID {
			e.Participants = append(e.Participants[:i], e.Participants[i+1:]...)
			return true
		}
	}
	return false
}

// ParticipantSummary is a participant resolved for the admin event view.
type ParticipantSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Country string `json:"country"`
}

// ResultSummary is a result with the athlete's name resolved. Name is empty
// when the athlete record no longer resolves.
type ResultSummary struct {
	AthleteID string `json:"athleteId"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
}

// EventDetails is the admin projection of one event.
type EventDetails struct {
	ID           string               `json:"id"`
	Slug         string               `json:"slug"`
	Name         string               `json:"name"`
	Date         Date                 `json:"date"`
	Venue        string               `json:"venue"`
	Participants []ParticipantSummary `json:"participants"`
	Results      []ResultSummary      `json:"results"`
}

// EventSummary is the event as seen from an athlete's history.
type EventSummary struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Date    Date            `json:"date"`
	Venue   string          `json:"venue"`
	Results []ResultSummary `json:"results"`
}

// HistoryItem is one resolved participation history entry.
type HistoryItem struct {
	Event  *EventSummary `json:"eventId"`
	Result *int          `json:"result,omitempty"`
}
