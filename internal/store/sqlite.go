package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/boltin-app/boltin/pkg/plugin"
	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// ErrNewerSchema is returned when the database was created by a newer version
// of Boltin than the currently running binary.
var ErrNewerSchema = fmt.Errorf("database was created by a newer version of Boltin")

// Compile-time interface guards.
var (
	_ plugin.Store      = (*SQLiteStore)(nil)
	_ plugin.Collection = (*sqliteCollection)(nil)
)

// collectionNameRe restricts collection names to safe SQL identifiers.
var collectionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SQLiteStore implements plugin.Store backed by SQLite via modernc.org/sqlite.
// Each collection maps to a table holding one JSON document per row.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex
	cols map[string]*sqliteCollection
}

// NewSQLite opens (or creates) a SQLite database at the given path and applies
// recommended pragmas for WAL mode and performance.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection. WAL enables concurrent readers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	// Apply recommended pragmas (modernc.org/sqlite requires SQL statements, not DSN params).
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-20000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	return &SQLiteStore{
		db:   db,
		cols: make(map[string]*sqliteCollection),
	}, nil
}

// DB returns the underlying *sql.DB for direct queries.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Collection returns the handle for the named collection. The name must be a
// lowercase identifier; Collection panics otherwise since collection names are
// compile-time constants in Boltin, never user input.
func (s *SQLiteStore) Collection(name string) plugin.Collection {
	if !collectionNameRe.MatchString(name) {
		panic(fmt.Sprintf("invalid collection name %q", name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cols[name]; ok {
		return c
	}
	c := &sqliteCollection{db: s.db, table: "col_" + name}
	s.cols[name] = c
	return c
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CheckVersion compares the running binary version against the version stored
// in the database. It prevents an older binary from opening a database created
// by a newer version. The special version "dev" always passes.
func (s *SQLiteStore) CheckVersion(ctx context.Context, currentVersion string) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _schema_meta (
			id           INTEGER  PRIMARY KEY CHECK (id = 1),
			app_version  TEXT     NOT NULL,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema meta table: %w", err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx,
		"SELECT app_version FROM _schema_meta WHERE id = 1",
	).Scan(&stored)

	if err == sql.ErrNoRows {
		// First run: record the current version.
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO _schema_meta (id, app_version, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)",
			currentVersion,
		)
		if err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("query schema version: %w", err)
	}

	// "dev" always passes -- useful for local development.
	if stored == "dev" || currentVersion == "dev" {
		return s.updateStoredVersion(ctx, currentVersion)
	}

	cur := normalizeVersion(currentVersion)
	sto := normalizeVersion(stored)

	if semver.Compare(cur, sto) < 0 {
		return fmt.Errorf("%w: database=%s, binary=%s", ErrNewerSchema, stored, currentVersion)
	}
	if semver.Compare(cur, sto) > 0 {
		return s.updateStoredVersion(ctx, currentVersion)
	}
	return nil
}

func (s *SQLiteStore) updateStoredVersion(ctx context.Context, v string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE _schema_meta SET app_version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1", v,
	)
	if err != nil {
		return fmt.Errorf("update schema version: %w", err)
	}
	return nil
}

// normalizeVersion ensures the version string has a "v" prefix for semver comparison.
func normalizeVersion(v string) string {
	if v != "" && v[0] != 'v' {
		return "v" + v
	}
	return v
}

// sqliteCollection is a single collection stored as a table of JSON documents.
type sqliteCollection struct {
	db    *sql.DB
	table string
	mu    sync.Mutex // Serialize Mutate's read-validate-write cycle
	once  sync.Once
	errs  error
}

// ensure creates the backing table on first use.
func (c *sqliteCollection) ensure(ctx context.Context) error {
	c.once.Do(func() {
		_, c.errs = c.db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %q (
				id  TEXT PRIMARY KEY,
				doc TEXT NOT NULL
			)
		`, c.table))
	})
	return c.errs
}

func (c *sqliteCollection) ReadAll(ctx context.Context) ([][]byte, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT doc FROM %q ORDER BY rowid", c.table))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.table, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.table, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *sqliteCollection) WriteAll(ctx context.Context, docs [][]byte) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	return c.replaceAll(ctx, docs)
}

func (c *sqliteCollection) Get(ctx context.Context, id string) ([]byte, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}

	var doc []byte
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %q WHERE id = ?", c.table), id,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.table, id, err)
	}
	return doc, nil
}

func (c *sqliteCollection) Insert(ctx context.Context, id string, doc []byte) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %q (id, doc) VALUES (?, ?)", c.table), id, doc,
	)
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", c.table, id, err)
	}
	return nil
}

func (c *sqliteCollection) Update(ctx context.Context, id string, doc []byte) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %q SET doc = ? WHERE id = ?", c.table), doc, id,
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", c.table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %q not found", id)
	}
	return nil
}

func (c *sqliteCollection) Delete(ctx context.Context, id string) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %q WHERE id = ?", c.table), id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %q not found", id)
	}
	return nil
}

func (c *sqliteCollection) Mutate(ctx context.Context, fn func(docs [][]byte) ([][]byte, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.ReadAll(ctx)
	if err != nil {
		return err
	}
	next, err := fn(docs)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return c.replaceAll(ctx, next)
}

// replaceAll swaps the table contents inside a transaction.
func (c *sqliteCollection) replaceAll(ctx context.Context, docs [][]byte) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %q", c.table)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear %s: %w", c.table, err)
	}
	for _, doc := range docs {
		id := docID(doc)
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %q (id, doc) VALUES (?, ?)", c.table), id, doc,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write %s/%s: %w", c.table, id, err)
		}
	}
	return tx.Commit()
}
