package models

import "time"

// Notification is one entry of the brand/influencer notification feed.
type Notification struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	Read       bool      `json:"read"`
	ActionPath string    `json:"actionPath,omitempty"`
	ActionType string    `json:"actionType,omitempty"`
	EntityID   string    `json:"entityId,omitempty"`
}
