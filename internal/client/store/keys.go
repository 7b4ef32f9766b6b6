package store

import "strings"

// Record keys. One namespaced record per collection, plus one messages bucket
// per conversation.
const (
	KeyProfile                 = "profile"
	KeyConversations           = "conversations"
	KeyJournalEntries          = "journal_entries"
	KeyGoals                   = "goals"
	KeyAffirmations            = "affirmations"
	KeyVisionItems             = "vision_items"
	KeyUserFacts               = "user_facts"
	KeyVibe                    = "latest_vibe"
	KeyDailyUsage              = "daily_usage"
	KeyMessagesSinceAnalysis   = "messages_since_analysis"
	KeyStreak                  = "streak"
	KeySummary                 = "latest_summary"
	KeyInsightQueue            = "insight_queue"
	KeyNotificationCount       = "notification_count"
	KeyNotificationWindowStart = "notification_window_start"
	KeyUserStateUpdatedAt      = "user_state_updated_at"

	MessagesPrefix = "messages_"
)

// MessagesKey returns the bucket key holding one conversation's messages.
func MessagesKey(conversationID string) string {
	return MessagesPrefix + conversationID
}

// ConversationIDFromKey is the inverse of MessagesKey. It rejects
// KeyMessagesSinceAnalysis, which shares the prefix but is a counter.
func ConversationIDFromKey(key string) (string, bool) {
	if key == KeyMessagesSinceAnalysis {
		return "", false
	}
	id, ok := strings.CutPrefix(key, MessagesPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
