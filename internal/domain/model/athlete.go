package model

import "time"

const (
	AthleteTypeAthlete = "athlete"
	AthleteTypeTeam    = "team"
)

// ParticipationEntry is the athlete-side copy of an event registration.
// Result is nil until the event's results are announced.
type ParticipationEntry struct {
	EventID string `json:"eventId"`
	Result  *int   `json:"result,omitempty"`
}

type Athlete struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Email                string               `json:"email"`
	HashedPassword       string               `json:"-"` // Not exposed
	Country              string               `json:"country"`
	DOB                  Date                 `json:"dob"`
	Address              string               `json:"address,omitempty"`
	Phone                string               `json:"phone,omitempty"`
	Team                 string               `json:"team,omitempty"`
	Type                 string               `json:"type"`
	ParticipationHistory []ParticipationEntry `json:"participationHistory"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// HistoryIndex returns the position of the entry for eventID, or -1.
func (a *Athlete) HistoryIndex(eventID string) int {
	for i, entry := range a.ParticipationHistory {
		if entry.EventID == eventID {
			return i
		}
	}
	return -1
}

// AddParticipation appends an entry for eventID unless one exists. It reports whether it appended.
func (a *Athlete) AddParticipation(eventID string) bool {
	if a.HistoryIndex(eventID) >= 0 {
		return false
	}
	a.ParticipationHistory = append(a.ParticipationHistory, ParticipationEntry{EventID: eventID})
	return true
}

// RemoveParticipation drops every entry for eventID.
func (a *Athlete) RemoveParticipation(eventID string) {
	kept := a.ParticipationHistory[:0]
	for _, entry := range a.ParticipationHistory {
		if entry.EventID != eventID {
			kept = append(kept, entry)
		}
	}
	a.ParticipationHistory = kept
}

// SetResult records position for eventID, appending an entry if the athlete had none.
func (a *Athlete) SetResult(eventID string, position int) {
	pos := position
	if i := a.HistoryIndex(eventID); i >= 0 {
		a.ParticipationHistory[i].Result = &pos
		return
	}
	a.ParticipationHistory = append(a.ParticipationHistory, ParticipationEntry{EventID: eventID, Result: &pos})
}
