package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS chars (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	level INTEGER NOT NULL,
	cluster TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chars_level ON chars(level);

CREATE TABLE IF NOT EXISTS patterns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	level INTEGER NOT NULL,
	pattern TEXT NOT NULL,
	count_total INTEGER NOT NULL,
	count_by_label TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_level ON patterns(level);

CREATE TABLE IF NOT EXISTS model_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveChar inserts a char and returns its row ID.
func (s *sqliteStore) SaveChar(ctx context.Context, c shape.Char) (shape.CharID, error) {
	if c.Level < 1 {
		return "", fmt.Errorf("char level %d: %w", c.Level, internalerr.ErrInvalidInput)
	}
	cluster, err := store.EncodeElements(c.Cluster)
	if err != nil {
		return "", err
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO chars (level, cluster) VALUES (?, ?) RETURNING id`,
		c.Level, string(cluster),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save char: %w", err)
	}
	return shape.CharID(strconv.FormatInt(id, 10)), nil
}

// LoadChars returns every char of a level in insertion order.
func (s *sqliteStore) LoadChars(ctx context.Context, level int) ([]shape.Char, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, cluster FROM chars WHERE level = ? ORDER BY id`, level)
	if err != nil {
		return nil, fmt.Errorf("load chars: %w", err)
	}
	defer rows.Close()

	var out []shape.Char
	for rows.Next() {
		c, err := scanChar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadChar retrieves a char by ID.
func (s *sqliteStore) LoadChar(ctx context.Context, id shape.CharID) (shape.Char, bool, error) {
	rowID, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		// Not an ID this store could have issued.
		return shape.Char{}, false, nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, level, cluster FROM chars WHERE id = ?`, rowID)
	c, err := scanChar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return shape.Char{}, false, nil
	}
	if err != nil {
		return shape.Char{}, false, err
	}
	return c, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChar(sc scanner) (shape.Char, error) {
	var (
		id      int64
		level   int
		cluster string
	)
	if err := sc.Scan(&id, &level, &cluster); err != nil {
		return shape.Char{}, err
	}
	elements, err := store.DecodeElements([]byte(cluster))
	if err != nil {
		return shape.Char{}, fmt.Errorf("char %d: %w", id, err)
	}
	c := shape.NewChar(level, elements)
	c.ID = shape.CharID(strconv.FormatInt(id, 10))
	return c, nil
}

// SavePattern inserts a pattern with its label counts.
func (s *sqliteStore) SavePattern(ctx context.Context, p shape.Pattern, sc shape.SampleCount) (string, error) {
	if p.Level < 0 {
		return "", fmt.Errorf("pattern level %d: %w", p.Level, internalerr.ErrInvalidInput)
	}
	elements, err := store.EncodeElements(p.Elements)
	if err != nil {
		return "", err
	}
	labels, err := store.EncodeLabels(sc.ByLabel)
	if err != nil {
		return "", err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
INSERT INTO patterns (level, pattern, count_total, count_by_label)
VALUES (?, ?, ?, ?)
RETURNING id`,
		p.Level, string(elements), sc.Total, string(labels),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save pattern: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// LoadPatterns returns every pattern of a level in insertion order.
func (s *sqliteStore) LoadPatterns(ctx context.Context, level int) ([]store.PatternRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, level, pattern, count_total, count_by_label
FROM patterns
WHERE level = ?
ORDER BY id`, level)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	defer rows.Close()

	var out []store.PatternRecord
	for rows.Next() {
		var (
			id       int64
			lvl      int
			elements string
			total    int
			labels   string
		)
		if err := rows.Scan(&id, &lvl, &elements, &total, &labels); err != nil {
			return nil, err
		}
		decoded, err := store.DecodeElements([]byte(elements))
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", id, err)
		}
		sc, err := store.DecodeLabels([]byte(labels), total)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", id, err)
		}
		out = append(out, store.PatternRecord{
			ID:      strconv.FormatInt(id, 10),
			Pattern: shape.Pattern{Level: lvl, Elements: decoded},
			Count:   sc,
		})
	}
	return out, rows.Err()
}

const metaBase = "base"

// SaveBase records the run-length base of the model.
func (s *sqliteStore) SaveBase(ctx context.Context, base int) error {
	if base < 2 {
		return fmt.Errorf("base %d: %w", base, internalerr.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO model_meta (key, value) VALUES (?, ?)`,
		metaBase, strconv.Itoa(base))
	if err != nil {
		return fmt.Errorf("save base: %w", err)
	}
	return nil
}

// LoadBase returns the saved base.
func (s *sqliteStore) LoadBase(ctx context.Context) (int, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM model_meta WHERE key = ?`, metaBase).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load base: %w", err)
	}
	base, err := strconv.Atoi(value)
	if err != nil || base < 2 {
		return 0, false, fmt.Errorf("stored base %q: %w", value, internalerr.ErrCorrupt)
	}
	return base, true, nil
}

// ClearAll deletes every char, pattern and the saved base in one transaction.
func (s *sqliteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patterns`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chars`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM model_meta`); err != nil {
		return err
	}
	return tx.Commit()
}
