package gatewayrpc

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	FieldEntity      = "entity"
	FieldFilter      = "filter"
	FieldRecords     = "records"
	FieldID          = "id"
	FieldParentID    = "parent_id"
	FieldPath        = "path"
	FieldMethod      = "method"
	FieldContentType = "content_type"
	FieldTTL         = "ttl_seconds"
	FieldURL         = "url"
	FieldStatus      = "status"

	StatusOK = "OK"

	BlobPut = "PUT"
	BlobGet = "GET"
)

// Remote entity (table) names.
const (
	EntityProfiles       = "profiles"
	EntityConversations  = "conversations"
	EntityMessages       = "messages"
	EntityJournalEntries = "journal_entries"
	EntityGoals          = "goals"
	EntityAffirmations   = "affirmations"
	EntityVisionItems    = "vision_items"
	EntityUserFacts      = "user_facts"
	EntityUserState      = "user_state"
)

var entities = map[string]bool{
	EntityProfiles:       true,
	EntityConversations:  true,
	EntityMessages:       true,
	EntityJournalEntries: true,
	EntityGoals:          true,
	EntityAffirmations:   true,
	EntityVisionItems:    true,
	EntityUserFacts:      true,
	EntityUserState:      true,
}

func ValidEntity(name string) bool {
	return entities[name]
}

// Filter narrows a Fetch. Empty fields match everything.
type Filter struct {
	ID       string
	ParentID string
}

// SignRequest asks for a presigned URL for one blob path.
type SignRequest struct {
	Path        string
	Method      string
	ContentType string
	TTL         time.Duration
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func NewStatusResponse() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldStatus: structpb.NewStringValue(StatusOK),
	}}
}

func Status(s *structpb.Struct) string {
	return stringField(s, FieldStatus)
}

func Empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

func NewFetchRequest(entity string, f Filter) *structpb.Struct {
	filter := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if f.ID != "" {
		filter.Fields[FieldID] = structpb.NewStringValue(f.ID)
	}
	if f.ParentID != "" {
		filter.Fields[FieldParentID] = structpb.NewStringValue(f.ParentID)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEntity: structpb.NewStringValue(entity),
		FieldFilter: structpb.NewStructValue(filter),
	}}
}

func ParseFetchRequest(s *structpb.Struct) (string, Filter) {
	filter := s.GetFields()[FieldFilter].GetStructValue()
	return stringField(s, FieldEntity), Filter{
		ID:       stringField(filter, FieldID),
		ParentID: stringField(filter, FieldParentID),
	}
}

func NewUpsertRequest(entity string, records []json.RawMessage) (*structpb.Struct, error) {
	list, err := encodeRecords(records)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEntity:  structpb.NewStringValue(entity),
		FieldRecords: structpb.NewListValue(list),
	}}, nil
}

func ParseUpsertRequest(s *structpb.Struct) (string, []json.RawMessage, error) {
	records, err := decodeRecords(s)
	if err != nil {
		return "", nil, err
	}
	return stringField(s, FieldEntity), records, nil
}

func NewRecordsResponse(records []json.RawMessage) (*structpb.Struct, error) {
	list, err := encodeRecords(records)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldRecords: structpb.NewListValue(list),
	}}, nil
}

func ParseRecordsResponse(s *structpb.Struct) ([]json.RawMessage, error) {
	return decodeRecords(s)
}

func NewDeleteRequest(entity, id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEntity: structpb.NewStringValue(entity),
		FieldID:     structpb.NewStringValue(id),
	}}
}

func ParseDeleteRequest(s *structpb.Struct) (entity, id string) {
	return stringField(s, FieldEntity), stringField(s, FieldID)
}

func (r SignRequest) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldPath:        structpb.NewStringValue(r.Path),
		FieldMethod:      structpb.NewStringValue(r.Method),
		FieldContentType: structpb.NewStringValue(r.ContentType),
		FieldTTL:         structpb.NewNumberValue(r.TTL.Seconds()),
	}}
}

func ParseSignRequest(s *structpb.Struct) SignRequest {
	ttl := s.GetFields()[FieldTTL].GetNumberValue()
	return SignRequest{
		Path:        stringField(s, FieldPath),
		Method:      stringField(s, FieldMethod),
		ContentType: stringField(s, FieldContentType),
		TTL:         time.Duration(ttl * float64(time.Second)),
	}
}

func NewURLResponse(url string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldURL: structpb.NewStringValue(url),
	}}
}

func URL(s *structpb.Struct) string {
	return stringField(s, FieldURL)
}

func NewPathRequest(path string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldPath: structpb.NewStringValue(path),
	}}
}

func Path(s *structpb.Struct) string {
	return stringField(s, FieldPath)
}

func encodeRecords(records []json.RawMessage) (*structpb.ListValue, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(records))}
	for i, raw := range records {
		v := new(structpb.Value)
		if err := protojson.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if v.GetStructValue() == nil {
			return nil, fmt.Errorf("record %d: not a JSON object", i)
		}
		list.Values = append(list.Values, v)
	}
	return list, nil
}

func decodeRecords(s *structpb.Struct) ([]json.RawMessage, error) {
	values := s.GetFields()[FieldRecords].GetListValue().GetValues()
	records := make([]json.RawMessage, 0, len(values))
	for i, v := range values {
		b, err := protojson.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, b)
	}
	return records, nil
}
