package model

import "time"

// Announcement is the payload queued after results are published for an event.
type Announcement struct {
	EventID     string    `json:"eventId"`
	EventName   string    `json:"eventName"`
	EventDate   Date      `json:"eventDate"`
	Results     []Result  `json:"results"`
	AnnouncedAt time.Time `json:"announcedAt"`
	Attempts    int       `json:"attempts"`
	// Delivered counts the leading Results already sent, so a retry resumes after them.
	Delivered   int       `json:"delivered"`
}
