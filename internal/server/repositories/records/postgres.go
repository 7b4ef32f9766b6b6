// Package records provides the PostgreSQL-backed repository that stores
// client entities as JSONB rows keyed by (user, entity, id).
package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/dbx"
	"github.com/dmitrijs2005/companion/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the record or replaces body, parent and timestamp of the
// existing row with the same (user_id, entity, id).
func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (user_id, entity, id, parent_id, body, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		ON CONFLICT (user_id, entity, id)
		DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at;
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.UserID, rec.Entity, rec.ID, rec.ParentID, string(rec.Body), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Select returns the user's records of one entity ordered by id.
func (r *PostgresRepository) Select(ctx context.Context, userID, entity string, f models.RecordFilter) ([]*models.Record, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, parent_id, body, updated_at FROM records WHERE user_id=$1 AND entity=$2`)
	args := []any{userID, entity}
	if f.ID != "" {
		args = append(args, f.ID)
		fmt.Fprintf(&sb, ` AND id=$%d`, len(args))
	}
	if f.ParentID != "" {
		args = append(args, f.ParentID)
		fmt.Fprintf(&sb, ` AND parent_id=$%d`, len(args))
	}
	sb.WriteString(` ORDER BY id`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		item := models.Record{UserID: userID, Entity: entity}
		var body []byte
		if err := rows.Scan(&item.ID, &item.ParentID, &body, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.Body = body
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes one record. A missing row yields common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, userID, entity, id string) error {
	n, err := dbx.ExecAffected(ctx, r.db,
		`DELETE FROM records WHERE user_id=$1 AND entity=$2 AND id=$3`, userID, entity, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteByParent removes every record of entity whose parent_id matches and
// reports how many went.
func (r *PostgresRepository) DeleteByParent(ctx context.Context, userID, entity, parentID string) (int64, error) {
	return dbx.ExecAffected(ctx, r.db,
		`DELETE FROM records WHERE user_id=$1 AND entity=$2 AND parent_id=$3`, userID, entity, parentID)
}
