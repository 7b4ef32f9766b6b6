package records

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/server/models"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

var upsertQuery = `INSERT INTO records .* VALUES \(\$1, \$2, \$3, \$4, \$5::jsonb, \$6\)\s+ON CONFLICT \(user_id, entity, id\)\s+DO UPDATE SET`

func TestUpsert_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(upsertQuery).
		WithArgs("u1", "messages", "m1", "c1", `{"id":"m1"}`, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.Record{
		UserID: "u1", Entity: "messages", ID: "m1", ParentID: "c1",
		Body: []byte(`{"id":"m1"}`), UpdatedAt: ts,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(upsertQuery).WillReturnError(errors.New("db is down"))

	err := repo.Upsert(context.Background(), &models.Record{UserID: "u1", Entity: "goals", ID: "g1", Body: []byte(`{}`)})
	require.Error(t, err)
	require.Regexp(t, `db error: .*db is down`, err.Error())
}

func TestSelect_FilterBuildsPlaceholders(t *testing.T) {
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter models.RecordFilter
		query  string
		args   []driver.Value
	}{
		{
			name:  "all",
			query: `SELECT id, parent_id, body, updated_at FROM records WHERE user_id=$1 AND entity=$2 ORDER BY id`,
			args:  []driver.Value{"u1", "messages"},
		},
		{
			name:   "by id",
			filter: models.RecordFilter{ID: "m1"},
			query:  `SELECT id, parent_id, body, updated_at FROM records WHERE user_id=$1 AND entity=$2 AND id=$3 ORDER BY id`,
			args:   []driver.Value{"u1", "messages", "m1"},
		},
		{
			name:   "by parent",
			filter: models.RecordFilter{ParentID: "c1"},
			query:  `SELECT id, parent_id, body, updated_at FROM records WHERE user_id=$1 AND entity=$2 AND parent_id=$3 ORDER BY id`,
			args:   []driver.Value{"u1", "messages", "c1"},
		},
		{
			name:   "both",
			filter: models.RecordFilter{ID: "m1", ParentID: "c1"},
			query:  `SELECT id, parent_id, body, updated_at FROM records WHERE user_id=$1 AND entity=$2 AND id=$3 AND parent_id=$4 ORDER BY id`,
			args:   []driver.Value{"u1", "messages", "m1", "c1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newRepoWithMock(t)

			rows := sqlmock.NewRows([]string{"id", "parent_id", "body", "updated_at"}).
				AddRow("m1", "c1", []byte(`{"id":"m1"}`), ts)
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WithArgs(tt.args...).WillReturnRows(rows)

			got, err := repo.Select(context.Background(), "u1", "messages", tt.filter)
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, &models.Record{
				UserID: "u1", Entity: "messages", ID: "m1", ParentID: "c1",
				Body: []byte(`{"id":"m1"}`), UpdatedAt: ts,
			}, got[0])
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSelect_QueryError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT id, parent_id, body, updated_at FROM records`).WillReturnError(errors.New("boom"))

	_, err := repo.Select(context.Background(), "u1", "goals", models.RecordFilter{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to select records")
}

func TestSelect_ScanError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	rows := sqlmock.NewRows([]string{"id", "parent_id", "body", "updated_at"}).
		AddRow("g1", "", []byte(`{}`), "not-a-time")
	mock.ExpectQuery(`SELECT id, parent_id, body, updated_at FROM records`).WillReturnRows(rows)

	_, err := repo.Select(context.Background(), "u1", "goals", models.RecordFilter{})
	require.Error(t, err)
}

func TestSelect_RowsError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	rows := sqlmock.NewRows([]string{"id", "parent_id", "body", "updated_at"}).
		AddRow("g1", "", []byte(`{}`), time.Now()).
		RowError(0, errors.New("row broke"))
	mock.ExpectQuery(`SELECT id, parent_id, body, updated_at FROM records`).WillReturnRows(rows)

	_, err := repo.Select(context.Background(), "u1", "goals", models.RecordFilter{})
	require.Error(t, err)
}

func TestDelete(t *testing.T) {
	deleteQuery := regexp.QuoteMeta(`DELETE FROM records WHERE user_id=$1 AND entity=$2 AND id=$3`)

	t.Run("deleted", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(deleteQuery).WithArgs("u1", "goals", "g1").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(context.Background(), "u1", "goals", "g1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(deleteQuery).WithArgs("u1", "goals", "g1").WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, repo.Delete(context.Background(), "u1", "goals", "g1"), common.ErrorNotFound)
	})

	t.Run("exec error", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(deleteQuery).WillReturnError(errors.New("db is down"))
		require.Error(t, repo.Delete(context.Background(), "u1", "goals", "g1"))
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(deleteQuery).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
		err := repo.Delete(context.Background(), "u1", "goals", "g1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "rows affected error")
	})
}

func TestDeleteByParent(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM records WHERE user_id=$1 AND entity=$2 AND parent_id=$3`)).
		WithArgs("u1", "messages", "c1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByParent(context.Background(), "u1", "messages", "c1")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
