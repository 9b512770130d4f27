package record

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/cantocards/internal/database"
	"github.com/at-ishikawa/cantocards/internal/vocab"
)

var recordColumnNames = []string{"id", "simplified", "traditional", "mandarin", "cantonese", "created_at", "updated_at"}

func TestDBRepository_Get(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      *GenerationRecord
		wantErr   bool
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(recordColumnNames).
					AddRow(1, "出路", "出路", "投降是你唯一的出路。", "投降係你唯一嘅出路。", now, now)
				mock.ExpectQuery("SELECT .* FROM generation_records WHERE simplified = \\?").
					WithArgs("出路").
					WillReturnRows(rows)
			},
			want: &GenerationRecord{
				ID:                1,
				Word:              vocab.Word{Simplified: "出路", Traditional: "出路"},
				MandarinSentence:  "投降是你唯一的出路。",
				CantoneseSentence: "投降係你唯一嘅出路。",
				CreatedAt:         now,
				UpdatedAt:         now,
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM generation_records WHERE simplified = \\?").
					WithArgs("出路").
					WillReturnRows(sqlmock.NewRows(recordColumnNames))
			},
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM generation_records WHERE simplified = \\?").
					WithArgs("出路").
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			got, err := repo.Get(context.Background(), "出路")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_List(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		order     Order
		wantQuery string
	}{
		{
			name:      "insertion order",
			order:     OrderInsertion,
			wantQuery: "SELECT .* FROM generation_records ORDER BY id$",
		},
		{
			name:      "reverse insertion order",
			order:     OrderReverse,
			wantQuery: "SELECT .* FROM generation_records ORDER BY id DESC$",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			rows := sqlmock.NewRows(recordColumnNames).
				AddRow(1, "出路", "出路", "Ma", "Ca", now, now)
			mock.ExpectQuery(tt.wantQuery).WillReturnRows(rows)

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			got, err := repo.List(context.Background(), tt.order)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "出路", got[0].Word.Simplified)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Upsert(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		record    GenerationRecord
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
		wantKind  PersistenceErrorKind
	}{
		{
			name: "inserts and reads back",
			record: GenerationRecord{
				Word:              vocab.Word{Simplified: "出路", Traditional: "出路"},
				MandarinSentence:  "Ma",
				CantoneseSentence: "Ca",
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO generation_records .* ON DUPLICATE KEY UPDATE").
					WithArgs("出路", "出路", "Ma", "Ca").
					WillReturnResult(sqlmock.NewResult(3, 1))
				mock.ExpectQuery("SELECT .* FROM generation_records WHERE simplified = \\?").
					WithArgs("出路").
					WillReturnRows(sqlmock.NewRows(recordColumnNames).
						AddRow(3, "出路", "出路", "Ma", "Ca", now, now))
			},
		},
		{
			name: "rejects a record without a Cantonese sentence",
			record: GenerationRecord{
				Word:             vocab.Word{Simplified: "出路", Traditional: "出路"},
				MandarinSentence: "Ma",
			},
			setupMock: func(mock sqlmock.Sqlmock) {},
			wantErr:   ErrIncomplete,
		},
		{
			name: "deadlock is a write conflict",
			record: GenerationRecord{
				Word:              vocab.Word{Simplified: "出路", Traditional: "出路"},
				MandarinSentence:  "Ma",
				CantoneseSentence: "Ca",
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO generation_records").
					WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
			},
			wantKind: WriteConflict,
		},
		{
			name: "invalid connection is unavailable",
			record: GenerationRecord{
				Word:              vocab.Word{Simplified: "出路", Traditional: "出路"},
				MandarinSentence:  "Ma",
				CantoneseSentence: "Ca",
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO generation_records").
					WillReturnError(mysql.ErrInvalidConn)
			},
			wantKind: Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			rec := tt.record
			err = repo.Upsert(context.Background(), &rec)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantKind != "":
				var persistenceErr *PersistenceError
				require.ErrorAs(t, err, &persistenceErr)
				assert.Equal(t, tt.wantKind, persistenceErr.Kind)
				assert.True(t, IsTransient(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(3), rec.ID)
				assert.Equal(t, now, rec.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "existing record", affected: 1, want: true},
		{name: "missing record", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec("DELETE FROM generation_records WHERE simplified = \\?").
				WithArgs("出路").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			got, err := repo.Delete(context.Background(), "出路")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func newSQLiteRepository(t *testing.T) *DBRepository {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.Migrate(context.Background(), db, database.DialectSQLite)
	require.NoError(t, err)
	return NewDBRepository(db)
}

func TestRepositories(t *testing.T) {
	repositories := map[string]func(t *testing.T) Repository{
		"sqlite": func(t *testing.T) Repository { return newSQLiteRepository(t) },
		"memory": func(t *testing.T) Repository { return NewMemoryRepository() },
	}

	for name, newRepository := range repositories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepository(t)

			for _, rec := range []GenerationRecord{
				{Word: vocab.Word{Simplified: "A", Traditional: "A"}, MandarinSentence: "Ma", CantoneseSentence: "Ca"},
				{Word: vocab.Word{Simplified: "B", Traditional: "B"}, MandarinSentence: "Mb", CantoneseSentence: "Cb"},
			} {
				require.NoError(t, repo.Upsert(ctx, &rec))
				assert.NotZero(t, rec.ID)
				assert.False(t, rec.CreatedAt.IsZero())
			}

			// A rerun for A overwrites it in place.
			rerun := GenerationRecord{Word: vocab.Word{Simplified: "A", Traditional: "A"}, MandarinSentence: "Ma2", CantoneseSentence: "Ca2"}
			require.NoError(t, repo.Upsert(ctx, &rerun))

			got, err := repo.List(ctx, OrderInsertion)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "A", got[0].Word.Simplified)
			assert.Equal(t, "Ma2", got[0].MandarinSentence)
			assert.Equal(t, "Ca2", got[0].CantoneseSentence)
			assert.Equal(t, "B", got[1].Word.Simplified)

			got, err = repo.List(ctx, OrderReverse)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "B", got[0].Word.Simplified)
			assert.Equal(t, "A", got[1].Word.Simplified)

			missing, err := repo.Get(ctx, "C")
			require.NoError(t, err)
			assert.Nil(t, missing)

			incomplete := GenerationRecord{Word: vocab.Word{Simplified: "C"}, MandarinSentence: "Mc"}
			assert.ErrorIs(t, repo.Upsert(ctx, &incomplete), ErrIncomplete)

			deleted, err := repo.Delete(ctx, "A")
			require.NoError(t, err)
			assert.True(t, deleted)
			deleted, err = repo.Delete(ctx, "A")
			require.NoError(t, err)
			assert.False(t, deleted)

			got, err = repo.List(ctx, OrderInsertion)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "B", got[0].Word.Simplified)
		})
	}
}
