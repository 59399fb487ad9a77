package model

import "time"

type Contest struct {
	ID         string     `json:"id"`
	Platform   Platform   `json:"platform"`
	ExternalID string     `json:"external_id"`
	Name       string     `json:"name"`
	StartTime  *time.Time `json:"start_time,omitempty"`
}

type ContestParticipation struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ContestID      string    `json:"contest_id"`
	Platform       Platform  `json:"platform"`
	Rank           int       `json:"rank"`
	OldRating      int       `json:"old_rating"`
	NewRating      int       `json:"new_rating"`
	ParticipatedAt time.Time `json:"participated_at"`

	ContestName *string `json:"contest_name,omitempty"` // For display
}

func (p ContestParticipation) Delta() int {
	return p.NewRating - p.OldRating
}
