// Package models defines server-side data models persisted in the database.
package models

import (
	"encoding/json"
	"time"
)

// Record is one client entity row. Body is the JSON object exactly as the
// client sent it; the other fields are extracted from it for indexing.
type Record struct {
	UserID    string
	Entity    string
	ID        string
	ParentID  string
	Body      json.RawMessage
	UpdatedAt time.Time
}

// RecordFilter narrows a Select. Empty fields match everything.
type RecordFilter struct {
	ID       string
	ParentID string
}
