package model

import "time"

// Volunteer is the profile a user creates to take on donation pickups
type Volunteer struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Skills       []string  `json:"skills"`
	Availability string    `json:"availability"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`

	// Populated on list and leaderboard reads
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// RegisterVolunteerRequest is used for volunteer self-registration
type RegisterVolunteerRequest struct {
	Skills       []string `json:"skills"`
	Availability string   `json:"availability"`
}
