// Package services holds the gateway's business logic: validating and
// indexing client records, and signing blob URLs scoped to their owner.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/dbx"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/dmitrijs2005/companion/internal/server/models"
	"github.com/dmitrijs2005/companion/internal/server/repositories/repomanager"
)

// parentField names the JSON field that links an entity to its parent row.
var parentField = map[string]string{
	gatewayrpc.EntityMessages: "conversation_id",
}

type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewRecordService(db *sql.DB, repomanager repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: repomanager, now: time.Now}
}

func validate(userID, entity string) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", common.ErrorInvalidInput)
	}
	if !gatewayrpc.ValidEntity(entity) {
		return fmt.Errorf("%w: unknown entity %q", common.ErrorInvalidInput, entity)
	}
	return nil
}

// Fetch returns the stored bodies of the user's records, ordered by id.
func (s *RecordService) Fetch(ctx context.Context, userID, entity string, f gatewayrpc.Filter) ([]json.RawMessage, error) {
	if err := validate(userID, entity); err != nil {
		return nil, err
	}
	rows, err := s.repomanager.Records(s.db).Select(ctx, userID, entity, models.RecordFilter{ID: f.ID, ParentID: f.ParentID})
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Body)
	}
	return out, nil
}

// Upsert stores every record in one transaction. A single malformed record
// rejects the whole batch.
func (s *RecordService) Upsert(ctx context.Context, userID, entity string, raws []json.RawMessage) error {
	if err := validate(userID, entity); err != nil {
		return err
	}
	recs := make([]*models.Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := s.extract(userID, entity, raw)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)
		for _, r := range recs {
			if err := repo.Upsert(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes one record. Deleting a conversation also removes its
// messages.
func (s *RecordService) Delete(ctx context.Context, userID, entity, id string) error {
	if err := validate(userID, entity); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: empty id", common.ErrorInvalidInput)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)
		if err := repo.Delete(ctx, userID, entity, id); err != nil {
			return err
		}
		if entity == gatewayrpc.EntityConversations {
			if _, err := repo.DeleteByParent(ctx, userID, gatewayrpc.EntityMessages, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *RecordService) extract(userID, entity string, raw json.RawMessage) (*models.Record, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: not a JSON object", common.ErrorInvalidInput)
	}
	id, _ := obj["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", common.ErrorInvalidInput)
	}

	rec := &models.Record{UserID: userID, Entity: entity, ID: id, Body: raw}
	if field, ok := parentField[entity]; ok {
		rec.ParentID, _ = obj[field].(string)
	}
	rec.UpdatedAt = s.timestamp(obj)
	return rec, nil
}

func (s *RecordService) timestamp(obj map[string]any) time.Time {
	for _, field := range []string{"updated_at", "created_at"} {
		v, _ := obj[field].(string)
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC()
		}
	}
	return s.now().UTC()
}
