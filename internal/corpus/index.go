package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/cantocards/internal/database"
	"github.com/at-ishikawa/cantocards/internal/dictionary"
	"github.com/at-ishikawa/cantocards/internal/embedding"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	id INTEGER NOT NULL,
	sense_index INTEGER NOT NULL,
	headword TEXT NOT NULL,
	variants TEXT NOT NULL DEFAULT '[]',
	jyutping TEXT NOT NULL DEFAULT '',
	pos TEXT NOT NULL DEFAULT '',
	definition TEXT NOT NULL DEFAULT '',
	english TEXT NOT NULL DEFAULT '',
	register TEXT NOT NULL,
	examples TEXT NOT NULL DEFAULT '[]',
	synonyms TEXT NOT NULL DEFAULT '[]',
	labels TEXT NOT NULL DEFAULT '[]',
	text TEXT NOT NULL,
	embedding BLOB,
	PRIMARY KEY (id, sense_index)
);
CREATE INDEX IF NOT EXISTS idx_entries_headword ON entries (headword);`

const entryColumns = "id, sense_index, headword, variants, jyutping, pos, definition, english, register, examples, synonyms, labels, text"

// Textual match scores. Similarity scores are cosine values in [-1, 1].
const (
	scoreHeadwordContainsQuery = 0.8
	scoreQueryContainsHeadword = 0.6
	scoreGlossContainsQuery    = 0.5
)

type entryRow struct {
	ID           int64  `db:"id"`
	SenseIndex   int    `db:"sense_index"`
	Headword     string `db:"headword"`
	Variants     string `db:"variants"`
	Jyutping     string `db:"jyutping"`
	PartOfSpeech string `db:"pos"`
	Definition   string `db:"definition"`
	English      string `db:"english"`
	Register     string `db:"register"`
	Examples     string `db:"examples"`
	Synonyms     string `db:"synonyms"`
	Labels       string `db:"labels"`
	Text         string `db:"text"`
}

func (r entryRow) entry() (dictionary.DictionaryEntry, error) {
	e := dictionary.DictionaryEntry{
		ID:           r.ID,
		SenseIndex:   r.SenseIndex,
		Headword:     r.Headword,
		Jyutping:     r.Jyutping,
		PartOfSpeech: r.PartOfSpeech,
		Definition:   r.Definition,
		English:      r.English,
		Register:     dictionary.Register(r.Register),
		Text:         r.Text,
	}
	lists := []struct {
		column string
		target *[]string
	}{
		{r.Variants, &e.Variants},
		{r.Examples, &e.UsageExamples},
		{r.Synonyms, &e.Synonyms},
		{r.Labels, &e.Labels},
	}
	for _, list := range lists {
		if err := json.Unmarshal([]byte(list.column), list.target); err != nil {
			return dictionary.DictionaryEntry{}, fmt.Errorf("json.Unmarshal(%q) > %w", list.column, err)
		}
	}
	return e, nil
}

type entryKey struct {
	id    int64
	sense int
}

type similarEntry struct {
	key        entryKey
	similarity float64
}

type candidate struct {
	entry dictionary.DictionaryEntry
	exact bool
	score float64
}

// Index is a SQLite backed dictionary corpus. With an embedder, entries are
// also ranked by embedding similarity to the query.
type Index struct {
	db                *sqlx.DB
	embedder          embedding.Embedder
	distanceThreshold float64
}

// Open opens the index file, creating the schema if needed.
// embedder may be nil, which disables similarity ranking.
func Open(ctx context.Context, path string, embedder embedding.Embedder, distanceThreshold float64) (*Index, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("database.OpenSQLite() > %w", err)
	}
	index := NewIndex(db, embedder, distanceThreshold)
	if err := index.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

func NewIndex(db *sqlx.DB, embedder embedding.Embedder, distanceThreshold float64) *Index {
	return &Index{
		db:                db,
		embedder:          embedder,
		distanceThreshold: distanceThreshold,
	}
}

func (ix *Index) init(ctx context.Context) error {
	if _, err := ix.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db.ExecContext(schema) > %w", err)
	}
	return nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// Build replaces the contents of the index with entries.
// Embeddings are computed batchSize entries at a time before anything is written.
func (ix *Index) Build(ctx context.Context, entries []dictionary.DictionaryEntry, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(entries)
	}

	vectors := make([][]float32, len(entries))
	if ix.embedder != nil {
		for start := 0; start < len(entries); start += batchSize {
			end := min(start+batchSize, len(entries))
			texts := make([]string, 0, end-start)
			for _, e := range entries[start:end] {
				texts = append(texts, e.EmbeddingText())
			}
			batch, err := ix.embedder.Embed(ctx, texts)
			if err != nil {
				return 0, fmt.Errorf("embedder.Embed(%d-%d) > %w", start, end, err)
			}
			copy(vectors[start:end], batch)
			slog.Default().Info("embedded entries",
				slog.Int("done", end),
				slog.Int("total", len(entries)),
				slog.String("embedder", ix.embedder.Name()),
			)
		}
	}

	tx, err := ix.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return 0, fmt.Errorf("tx.ExecContext(delete entries) > %w", err)
	}

	query := "INSERT OR REPLACE INTO entries (" + entryColumns + ", embedding) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for i, e := range entries {
		var blob []byte
		if vectors[i] != nil {
			blob = embedding.Encode(vectors[i])
		}
		_, err := tx.ExecContext(ctx, query,
			e.ID, e.SenseIndex, e.Headword, jsonList(e.Variants), e.Jyutping, e.PartOfSpeech,
			e.Definition, e.English, string(e.Register), jsonList(e.UsageExamples),
			jsonList(e.Synonyms), jsonList(e.Labels), e.Text, blob)
		if err != nil {
			return 0, fmt.Errorf("tx.ExecContext(insert entry %d/%d) > %w", e.ID, e.SenseIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("tx.Commit() > %w", err)
	}
	return len(entries), nil
}

func jsonList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(values)
	return string(data)
}

// Lookup returns up to k entries for headword, most relevant first.
// An exact headword or variant match always ranks first. Remaining ties are
// broken by headword, id and sense index so results are deterministic.
func (ix *Index) Lookup(ctx context.Context, headword string, k int) (dictionary.RetrievalResult, error) {
	query := strings.TrimSpace(headword)
	if k <= 0 || query == "" {
		return dictionary.RetrievalResult{}, nil
	}

	candidates, err := ix.textualCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	if ix.embedder != nil {
		similar, err := ix.similarCandidates(ctx, query, k)
		if err != nil {
			slog.Default().Warn("similarity lookup failed, using textual matches only",
				slog.String("headword", query),
				slog.Any("error", err),
			)
		}
		for key, c := range similar {
			if existing, ok := candidates[key]; ok {
				existing.score = max(existing.score, c.score)
				continue
			}
			candidates[key] = c
		}
	}

	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.entry.Headword != b.entry.Headword {
			return a.entry.Headword < b.entry.Headword
		}
		if a.entry.ID != b.entry.ID {
			return a.entry.ID < b.entry.ID
		}
		return a.entry.SenseIndex < b.entry.SenseIndex
	})

	result := make(dictionary.RetrievalResult, 0, min(k, len(ranked)))
	for _, c := range ranked[:min(k, len(ranked))] {
		result = append(result, c.entry)
	}
	return result, nil
}

func (ix *Index) textualCandidates(ctx context.Context, query string) (map[entryKey]*candidate, error) {
	pattern := "%" + escapeLike(query) + "%"
	var rows []entryRow
	err := ix.db.SelectContext(ctx, &rows,
		"SELECT "+entryColumns+" FROM entries"+
			` WHERE headword = ? OR variants LIKE ? ESCAPE '\'`+
			` OR headword LIKE ? ESCAPE '\' OR instr(?, headword) > 0`+
			` OR definition LIKE ? ESCAPE '\' OR english LIKE ? ESCAPE '\'`,
		query, "%"+escapeLike(jsonString(query))+"%", pattern, query, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("db.SelectContext(textual) > %w", err)
	}

	candidates := make(map[entryKey]*candidate, len(rows))
	for _, row := range rows {
		e, err := row.entry()
		if err != nil {
			return nil, fmt.Errorf("entry %d/%d > %w", row.ID, row.SenseIndex, err)
		}
		c := &candidate{entry: e}
		switch {
		case e.HasHeadword(query):
			c.exact = true
			c.score = 1
		case strings.Contains(e.Headword, query):
			c.score = scoreHeadwordContainsQuery
		case strings.Contains(query, e.Headword):
			c.score = scoreQueryContainsHeadword * float64(utf8.RuneCountInString(e.Headword)) / float64(utf8.RuneCountInString(query))
		default:
			c.score = scoreGlossContainsQuery
		}
		candidates[entryKey{e.ID, e.SenseIndex}] = c
	}
	return candidates, nil
}

// similarCandidates returns the k entries closest to the query whose cosine
// distance is within the threshold.
func (ix *Index) similarCandidates(ctx context.Context, query string, k int) (map[entryKey]*candidate, error) {
	queryVector, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedder.EmbedQuery() > %w", err)
	}

	rows, err := ix.db.QueryxContext(ctx, "SELECT id, sense_index, embedding FROM entries WHERE embedding IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("db.QueryxContext(embeddings) > %w", err)
	}
	defer rows.Close()

	var best []similarEntry
	minSimilarity := 1 - ix.distanceThreshold
	for rows.Next() {
		var key entryKey
		var blob []byte
		if err := rows.Scan(&key.id, &key.sense, &blob); err != nil {
			return nil, fmt.Errorf("rows.Scan() > %w", err)
		}
		vector, err := embedding.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("embedding.Decode(%d/%d) > %w", key.id, key.sense, err)
		}
		similarity := embedding.Cosine(queryVector, vector)
		if similarity < minSimilarity {
			continue
		}
		best = append(best, similarEntry{key: key, similarity: similarity})
		if len(best) > 4*k {
			best = topSimilar(best, k)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err() > %w", err)
	}
	best = topSimilar(best, k)

	candidates := make(map[entryKey]*candidate, len(best))
	for _, s := range best {
		var row entryRow
		if err := ix.db.GetContext(ctx, &row,
			"SELECT "+entryColumns+" FROM entries WHERE id = ? AND sense_index = ?", s.key.id, s.key.sense); err != nil {
			return nil, fmt.Errorf("db.GetContext(entry %d/%d) > %w", s.key.id, s.key.sense, err)
		}
		e, err := row.entry()
		if err != nil {
			return nil, fmt.Errorf("entry %d/%d > %w", row.ID, row.SenseIndex, err)
		}
		candidates[s.key] = &candidate{
			entry: e,
			exact: e.HasHeadword(query),
			score: s.similarity,
		}
	}
	return candidates, nil
}

func topSimilar(items []similarEntry, k int) []similarEntry {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.similarity != b.similarity {
			return a.similarity > b.similarity
		}
		if a.key.id != b.key.id {
			return a.key.id < b.key.id
		}
		return a.key.sense < b.key.sense
	})
	if len(items) <= k {
		return items
	}
	return items[:k]
}

// IDs returns the ids of all indexed entries.
func (ix *Index) IDs(ctx context.Context) (map[int64]struct{}, error) {
	var ids []int64
	if err := ix.db.SelectContext(ctx, &ids, "SELECT DISTINCT id FROM entries"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(ids) > %w", err)
	}
	result := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		result[id] = struct{}{}
	}
	return result, nil
}

// Count returns the number of indexed senses.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var count int
	if err := ix.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM entries"); err != nil {
		return 0, fmt.Errorf("db.GetContext(count) > %w", err)
	}
	return count, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
