package models

import "time"

// DailyUsage counts messages sent on one calendar day (DayKey is yyyy-MM-dd).
type DailyUsage struct {
	DayKey       string `json:"day_key"`
	MessageCount int    `json:"message_count"`
}

type Streak struct {
	Current          int    `json:"current"`
	Longest          int    `json:"longest"`
	LastActiveDayKey string `json:"last_active_day_key,omitempty"`
}

type InsightEntry struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Vibe is the latest mood signal.
type Vibe struct {
	Mood      string    `json:"mood"`
	Energy    int       `json:"energy"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the latest rolling conversation summary.
type Summary struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// UserState is the aggregate pushed and pulled as a single remote record.
type UserState struct {
	Usage                 DailyUsage     `json:"usage"`
	Streak                Streak         `json:"streak"`
	Vibe                  *Vibe          `json:"vibe,omitempty"`
	Summary               *Summary       `json:"summary,omitempty"`
	MessagesSinceAnalysis int            `json:"messages_since_analysis"`
	Insights              []InsightEntry `json:"insights,omitempty"`
	UpdatedAt             time.Time      `json:"updated_at"`
}
