package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/cantocards/internal/vocab"
)

//go:generate mockgen -source=repository.go -destination=../mocks/record/mock_repository.go -package=mock_record

// Repository is a keyed collection of generation records.
// Get returns nil when the word has no record.
type Repository interface {
	Get(ctx context.Context, simplified string) (*GenerationRecord, error)
	List(ctx context.Context, order Order) ([]GenerationRecord, error)
	// Upsert replaces the sentences of an existing record for the same word,
	// keeping its insertion position, and fills the stored ID and timestamps.
	Upsert(ctx context.Context, rec *GenerationRecord) error
	Delete(ctx context.Context, simplified string) (bool, error)
}

const recordColumns = "id, simplified, traditional, mandarin, cantonese, created_at, updated_at"

type recordRow struct {
	ID          int64     `db:"id"`
	Simplified  string    `db:"simplified"`
	Traditional string    `db:"traditional"`
	Mandarin    string    `db:"mandarin"`
	Cantonese   string    `db:"cantonese"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r recordRow) record() GenerationRecord {
	return GenerationRecord{
		ID: r.ID,
		Word: vocab.Word{
			Simplified:  r.Simplified,
			Traditional: r.Traditional,
		},
		MandarinSentence:  r.Mandarin,
		CantoneseSentence: r.Cantonese,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// DBRepository implements Repository with MySQL or SQLite.
// Timestamps are assigned by the database.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// Get returns the record of a word, or nil if not found.
func (r *DBRepository) Get(ctx context.Context, simplified string) (*GenerationRecord, error) {
	var row recordRow
	err := r.db.GetContext(ctx, &row, "SELECT "+recordColumns+" FROM generation_records WHERE simplified = ?", simplified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(generation_record) > %w", classify(err))
	}
	rec := row.record()
	return &rec, nil
}

// List returns every record in insertion order or its reverse.
func (r *DBRepository) List(ctx context.Context, order Order) ([]GenerationRecord, error) {
	query := "SELECT " + recordColumns + " FROM generation_records ORDER BY id"
	if order == OrderReverse {
		query += " DESC"
	}
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("db.SelectContext(generation_records) > %w", classify(err))
	}
	records := make([]GenerationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (r *DBRepository) upsertQuery() string {
	if r.db.DriverName() == "mysql" {
		return `INSERT INTO generation_records (simplified, traditional, mandarin, cantonese)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			traditional = VALUES(traditional),
			mandarin = VALUES(mandarin),
			cantonese = VALUES(cantonese),
			updated_at = CURRENT_TIMESTAMP(6)`
	}
	return `INSERT INTO generation_records (simplified, traditional, mandarin, cantonese)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (simplified) DO UPDATE SET
			traditional = excluded.traditional,
			mandarin = excluded.mandarin,
			cantonese = excluded.cantonese,
			updated_at = CURRENT_TIMESTAMP`
}

// Upsert inserts or overwrites the record of rec.Word.Simplified.
func (r *DBRepository) Upsert(ctx context.Context, rec *GenerationRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, r.upsertQuery(),
		rec.Word.Simplified, rec.Word.Traditional, rec.MandarinSentence, rec.CantoneseSentence); err != nil {
		return fmt.Errorf("db.ExecContext(upsert generation_record) > %w", classify(err))
	}

	stored, err := r.Get(ctx, rec.Word.Simplified)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("record for %s disappeared after upsert", rec.Word.Simplified)
	}
	*rec = *stored
	return nil
}

// Delete removes the record of a word and reports whether it existed.
func (r *DBRepository) Delete(ctx context.Context, simplified string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM generation_records WHERE simplified = ?", simplified)
	if err != nil {
		return false, fmt.Errorf("db.ExecContext(delete generation_record) > %w", classify(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("result.RowsAffected() > %w", err)
	}
	return affected > 0, nil
}
