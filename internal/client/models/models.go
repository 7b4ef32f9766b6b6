// Package models defines the companion's locally cached and synchronized
// records. All collection records carry an immutable id; merge code relies
// on GetID and, where server-wins applies, GetUpdatedAt.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Identified is implemented by every record that lives in a collection.
type Identified interface {
	GetID() string
}

// Versioned records carry a modification time used by server-wins-if-newer merges.
type Versioned interface {
	Identified
	GetUpdatedAt() time.Time
}

// NewID returns a fresh random record id.
func NewID() string {
	return uuid.NewString()
}

type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPlus    SubscriptionTier = "plus"
	TierPremium SubscriptionTier = "premium"
)

// Profile is the per-user singleton.
type Profile struct {
	ID              string           `json:"id"`
	DisplayName     string           `json:"display_name"`
	Onboarded       bool             `json:"onboarded"`
	Tier            SubscriptionTier `json:"tier"`
	Blocked         bool             `json:"blocked"`
	BehavioralLoops []string         `json:"behavioral_loops,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Starred   bool      `json:"starred"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Conversation) GetID() string           { return c.ID }
func (c Conversation) GetUpdatedAt() time.Time { return c.UpdatedAt }

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message belongs to a conversation once ConversationID is assigned;
// an empty ConversationID means not yet assigned.
type Message struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Role           Role              `json:"role"`
	Text           string            `json:"text"`
	ImageRef       string            `json:"image_ref,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (m Message) GetID() string { return m.ID }

type JournalEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j JournalEntry) GetID() string { return j.ID }

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalArchived  GoalStatus = "archived"
)

type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Details     string     `json:"details,omitempty"`
	Status      GoalStatus `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (g Goal) GetID() string           { return g.ID }
func (g Goal) GetUpdatedAt() time.Time { return g.UpdatedAt }

type Affirmation struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Affirmation) GetID() string { return a.ID }

// VisionItem.ImageRef is either a local file path or a remote storage path.
// RemotePath is set once the image has a copy in blob storage.
type VisionItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	ImageRef   string    `json:"image_ref,omitempty"`
	RemotePath string    `json:"remote_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (v VisionItem) GetID() string { return v.ID }

type UserFact struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u UserFact) GetID() string { return u.ID }
