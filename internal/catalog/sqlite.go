package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

const schema = `
CREATE TABLE IF NOT EXISTS questions (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL,
	text           TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL,
	subcategory    TEXT NOT NULL DEFAULT '',
	tier           TEXT NOT NULL,
	base_priority  REAL NOT NULL DEFAULT 0,
	response_type  TEXT NOT NULL,
	reverse_scored INTEGER NOT NULL DEFAULT 0,
	trait_weights  TEXT NOT NULL DEFAULT '{}',
	markers        TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category, subcategory);
`

// SQLiteSource loads questions from a SQLite database file. The database is
// opened per Load so a refresh always sees the latest committed rows.
type SQLiteSource struct {
	Path string
}

// Name identifies the source in events and errors.
func (s SQLiteSource) Name() string { return "sqlite:" + s.Path }

// Load reads every question ordered by position.
func (s SQLiteSource) Load(ctx context.Context) ([]models.Question, error) {
	db, err := openCatalogDB(s.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT id, text, category, subcategory, tier, base_priority,
		       response_type, reverse_scored, trait_weights, markers
		FROM questions ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: query questions: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var (
			q               models.Question
			tier, respType  string
			reverse         int
			weights, marker string
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Category, &q.Subcategory, &tier,
			&q.BasePriority, &respType, &reverse, &weights, &marker); err != nil {
			return nil, fmt.Errorf("catalog: scan question: %w", err)
		}
		q.Tier = models.QuestionTier(tier)
		q.ResponseType = models.ResponseType(respType)
		q.ReverseScored = reverse != 0
		if err := json.Unmarshal([]byte(weights), &q.TraitWeights); err != nil {
			return nil, fmt.Errorf("catalog: question %q trait_weights: %w", q.ID, err)
		}
		if err := json.Unmarshal([]byte(marker), &q.PersonalizationMarkers); err != nil {
			return nil, fmt.Errorf("catalog: question %q markers: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate questions: %w", err)
	}
	return out, nil
}

// ImportToSQLite replaces the questions table at path with qs, preserving
// their order. The list is validated first and nothing is written if it is
// invalid.
func ImportToSQLite(ctx context.Context, path string, qs []models.Question) error {
	if err := Validate(qs); err != nil {
		return err
	}
	db, err := openCatalogDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM questions"); err != nil {
		return fmt.Errorf("catalog: clear questions: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (id, position, text, category, subcategory, tier,
			base_priority, response_type, reverse_scored, trait_weights, markers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, q := range qs {
		weights, err := json.Marshal(q.TraitWeights)
		if err != nil {
			return fmt.Errorf("catalog: encode weights for %q: %w", q.ID, err)
		}
		markers := q.PersonalizationMarkers
		if markers == nil {
			markers = []string{}
		}
		markerJSON, err := json.Marshal(markers)
		if err != nil {
			return fmt.Errorf("catalog: encode markers for %q: %w", q.ID, err)
		}
		reverse := 0
		if q.ReverseScored {
			reverse = 1
		}
		if _, err := stmt.ExecContext(ctx, q.ID, i, q.Text, q.Category, q.Subcategory,
			string(q.Tier), q.BasePriority, string(q.ResponseType), reverse,
			string(weights), string(markerJSON)); err != nil {
			return fmt.Errorf("catalog: insert %q: %w", q.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}

func openCatalogDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("catalog: create data dir: %w", err)
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("catalog: pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: migration: %w", err)
	}
	return db, nil
}
