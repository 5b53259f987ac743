package domain

import "time"

// Comment is a single entry in a market's append-only activity log.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsAI      bool      `json:"isAi,omitempty"`
}
