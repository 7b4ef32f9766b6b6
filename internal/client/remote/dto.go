package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/companion/internal/client/models"
)

// DecodeError reports a remote record that could not be turned into a model.
type DecodeError struct {
	Entity string
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("decode %s.%s: %v", e.Entity, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	errMissing = errors.New("missing required field")
	errType    = errors.New("unexpected type")
)

// object wraps one decoded JSON object. The first field error sticks and
// later accessors return zero values, so decoders read straight through and
// check err once.
type object struct {
	entity string
	prefix string
	m      map[string]any
	err    error
}

func parseObject(entity string, raw json.RawMessage) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, &DecodeError{Entity: entity, Err: err}
	}
	if m == nil {
		return nil, &DecodeError{Entity: entity, Err: errType}
	}
	return &object{entity: entity, m: m}, nil
}

func (o *object) fail(field string, err error) {
	if o.err == nil {
		o.err = &DecodeError{Entity: o.entity, Field: o.prefix + field, Err: err}
	}
}

func (o *object) id() string {
	s := o.str("id")
	if s == "" {
		o.fail("id", errMissing)
	}
	return s
}

// str accepts strings and numbers.
func (o *object) str(field string) string {
	switch v := o.m[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		o.fail(field, errType)
		return ""
	}
}

// boolean accepts true/false and their string forms.
func (o *object) boolean(field string) bool {
	switch v := o.m[field].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			o.fail(field, err)
		}
		return b
	default:
		o.fail(field, errType)
		return false
	}
}

// integer accepts numbers and numeric strings; fractions are truncated.
func (o *object) integer(field string) int {
	var s string
	switch v := o.m[field].(type) {
	case nil:
		return 0
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		o.fail(field, errType)
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		o.fail(field, err)
		return 0
	}
	return int(f)
}

// timestamp accepts RFC 3339 strings and unix seconds (number or string).
func (o *object) timestamp(field string) time.Time {
	var s string
	switch v := o.m[field].(type) {
	case nil:
		return time.Time{}
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
		if s == "" {
			return time.Time{}
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	default:
		o.fail(field, errType)
		return time.Time{}
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		o.fail(field, fmt.Errorf("not a timestamp: %q", s))
		return time.Time{}
	}
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
}

func (o *object) timestampPtr(field string) *time.Time {
	t := o.timestamp(field)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (o *object) strings(field string) []string {
	switch v := o.m[field].(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				o.fail(field, errType)
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		o.fail(field, errType)
		return nil
	}
}

func (o *object) stringMap(field string) map[string]string {
	switch v := o.m[field].(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			switch iv := item.(type) {
			case string:
				out[k] = iv
			case json.Number:
				out[k] = iv.String()
			case bool:
				out[k] = strconv.FormatBool(iv)
			default:
				o.fail(field+"."+k, errType)
				return nil
			}
		}
		return out
	default:
		o.fail(field, errType)
		return nil
	}
}

// child returns the nested object at field, or nil when absent.
func (o *object) child(field string) *object {
	switch v := o.m[field].(type) {
	case nil:
		return nil
	case map[string]any:
		return &object{entity: o.entity, prefix: o.prefix + field + ".", m: v}
	default:
		o.fail(field, errType)
		return nil
	}
}

func (o *object) list(field string) []*object {
	switch v := o.m[field].(type) {
	case nil:
		return nil
	case []any:
		out := make([]*object, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				o.fail(fmt.Sprintf("%s[%d]", field, i), errType)
				return nil
			}
			out = append(out, &object{entity: o.entity, prefix: fmt.Sprintf("%s%s[%d].", o.prefix, field, i), m: m})
		}
		return out
	default:
		o.fail(field, errType)
		return nil
	}
}

// absorb propagates a nested object's first error.
func (o *object) absorb(c *object) {
	if c != nil && c.err != nil && o.err == nil {
		o.err = c.err
	}
}

func DecodeProfile(raw json.RawMessage) (models.Profile, error) {
	o, err := parseObject("profile", raw)
	if err != nil {
		return models.Profile{}, err
	}
	p := models.Profile{
		ID:              o.id(),
		DisplayName:     o.str("display_name"),
		Onboarded:       o.boolean("onboarded"),
		Tier:            models.SubscriptionTier(o.str("tier")),
		Blocked:         o.boolean("blocked"),
		BehavioralLoops: o.strings("behavioral_loops"),
		UpdatedAt:       o.timestamp("updated_at"),
	}
	if p.Tier == "" {
		p.Tier = models.TierFree
	}
	return p, o.err
}

func DecodeConversation(raw json.RawMessage) (models.Conversation, error) {
	o, err := parseObject("conversation", raw)
	if err != nil {
		return models.Conversation{}, err
	}
	c := models.Conversation{
		ID:        o.id(),
		Title:     o.str("title"),
		Starred:   o.boolean("starred"),
		CreatedAt: o.timestamp("created_at"),
		UpdatedAt: o.timestamp("updated_at"),
	}
	return c, o.err
}

func DecodeMessage(raw json.RawMessage) (models.Message, error) {
	o, err := parseObject("message", raw)
	if err != nil {
		return models.Message{}, err
	}
	m := models.Message{
		ID:             o.id(),
		ConversationID: o.str("conversation_id"),
		Role:           models.Role(o.str("role")),
		Text:           o.str("text"),
		ImageRef:       o.str("image_ref"),
		Metadata:       o.stringMap("metadata"),
		CreatedAt:      o.timestamp("created_at"),
	}
	if m.Role != models.RoleAssistant {
		m.Role = models.RoleUser
	}
	return m, o.err
}

func DecodeJournalEntry(raw json.RawMessage) (models.JournalEntry, error) {
	o, err := parseObject("journal_entry", raw)
	if err != nil {
		return models.JournalEntry{}, err
	}
	j := models.JournalEntry{
		ID:        o.id(),
		Title:     o.str("title"),
		Body:      o.str("body"),
		Mood:      o.str("mood"),
		CreatedAt: o.timestamp("created_at"),
		UpdatedAt: o.timestamp("updated_at"),
	}
	return j, o.err
}

func DecodeGoal(raw json.RawMessage) (models.Goal, error) {
	o, err := parseObject("goal", raw)
	if err != nil {
		return models.Goal{}, err
	}
	g := models.Goal{
		ID:          o.id(),
		Title:       o.str("title"),
		Details:     o.str("details"),
		Status:      models.GoalStatus(o.str("status")),
		CompletedAt: o.timestampPtr("completed_at"),
		CreatedAt:   o.timestamp("created_at"),
		UpdatedAt:   o.timestamp("updated_at"),
	}
	switch g.Status {
	case models.GoalActive, models.GoalCompleted, models.GoalArchived:
	default:
		g.Status = models.GoalActive
	}
	return g, o.err
}

func DecodeAffirmation(raw json.RawMessage) (models.Affirmation, error) {
	o, err := parseObject("affirmation", raw)
	if err != nil {
		return models.Affirmation{}, err
	}
	a := models.Affirmation{
		ID:        o.id(),
		Text:      o.str("text"),
		Favorite:  o.boolean("favorite"),
		CreatedAt: o.timestamp("created_at"),
		UpdatedAt: o.timestamp("updated_at"),
	}
	return a, o.err
}

func DecodeVisionItem(raw json.RawMessage) (models.VisionItem, error) {
	o, err := parseObject("vision_item", raw)
	if err != nil {
		return models.VisionItem{}, err
	}
	v := models.VisionItem{
		ID:         o.id(),
		Title:      o.str("title"),
		ImageRef:   o.str("image_ref"),
		RemotePath: o.str("remote_path"),
		CreatedAt:  o.timestamp("created_at"),
		UpdatedAt:  o.timestamp("updated_at"),
	}
	return v, o.err
}

func DecodeUserFact(raw json.RawMessage) (models.UserFact, error) {
	o, err := parseObject("user_fact", raw)
	if err != nil {
		return models.UserFact{}, err
	}
	f := models.UserFact{
		ID:        o.id(),
		Text:      o.str("text"),
		Category:  o.str("category"),
		CreatedAt: o.timestamp("created_at"),
		UpdatedAt: o.timestamp("updated_at"),
	}
	return f, o.err
}

// DecodeUserState parses the aggregate record. Its id is the owning user's id
// and is not kept on the model.
func DecodeUserState(raw json.RawMessage) (models.UserState, error) {
	o, err := parseObject("user_state", raw)
	if err != nil {
		return models.UserState{}, err
	}
	st := models.UserState{
		MessagesSinceAnalysis: o.integer("messages_since_analysis"),
		UpdatedAt:             o.timestamp("updated_at"),
	}
	if u := o.child("usage"); u != nil {
		st.Usage = models.DailyUsage{DayKey: u.str("day_key"), MessageCount: u.integer("message_count")}
		o.absorb(u)
	}
	if s := o.child("streak"); s != nil {
		st.Streak = models.Streak{
			Current:          s.integer("current"),
			Longest:          s.integer("longest"),
			LastActiveDayKey: s.str("last_active_day_key"),
		}
		o.absorb(s)
	}
	if v := o.child("vibe"); v != nil {
		st.Vibe = &models.Vibe{
			Mood:      v.str("mood"),
			Energy:    v.integer("energy"),
			Note:      v.str("note"),
			UpdatedAt: v.timestamp("updated_at"),
		}
		o.absorb(v)
	}
	if s := o.child("summary"); s != nil {
		st.Summary = &models.Summary{Text: s.str("text"), CreatedAt: s.timestamp("created_at")}
		o.absorb(s)
	}
	for _, item := range o.list("insights") {
		st.Insights = append(st.Insights, models.InsightEntry{
			Text:      item.str("text"),
			CreatedAt: item.timestamp("created_at"),
		})
		o.absorb(item)
	}
	return st, o.err
}

// DecodeID reads only the id of a remote record of entity.
func DecodeID(entity string, raw json.RawMessage) (string, error) {
	o, err := parseObject(entity, raw)
	if err != nil {
		return "", err
	}
	id := o.id()
	return id, o.err
}

// DecodeAll decodes every record it can. Failures are joined into the
// returned error and the offending records are left out.
func DecodeAll[T any](records []json.RawMessage, decode func(json.RawMessage) (T, error)) ([]T, error) {
	out := make([]T, 0, len(records))
	var errs []error
	for _, raw := range records {
		v, err := decode(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errors.Join(errs...)
}

// Encode marshals a model into a remote record.
func Encode(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// EncodeAll marshals a slice of models.
func EncodeAll[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := Encode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

type userStateRecord struct {
	ID string `json:"id"`
	models.UserState
}

// EncodeUserState tags the aggregate with the owning user's id.
func EncodeUserState(userID string, st models.UserState) (json.RawMessage, error) {
	return json.Marshal(userStateRecord{ID: userID, UserState: st})
}
