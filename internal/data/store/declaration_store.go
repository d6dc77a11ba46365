// # internal/data/store/declaration_store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"autoimport/internal/engine/resolver"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

const schemaVersion = 1

// DeclarationRecord is one exported row of a declaration table.
type DeclarationRecord struct {
	Name    string
	Kind    string
	From    string
	Ambient bool
	Start   int
	End     int
}

// ExportMeta describes the index pass a snapshot was taken from.
type ExportMeta struct {
	PassID       string
	ExportedAt   time.Time
	Files        int
	Declarations int
}

// SQLiteDeclarationStore persists declaration table snapshots so other tools
// can query them without parsing the workspace.
type SQLiteDeclarationStore struct {
	db           *sql.DB
	workspaceKey string
	lookupStmt   *sql.Stmt

	cacheMu     sync.RWMutex
	lookupCache map[string][]DeclarationRecord
}

func OpenSQLiteDeclarationStore(path, workspaceKey string) (*SQLiteDeclarationStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("declaration store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("declaration store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create declaration store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite declaration store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite declaration store %q: %w", cleanPath, err)
	}
	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	key := strings.TrimSpace(workspaceKey)
	if key == "" {
		key = "default"
	}

	lookupStmt, err := db.Prepare(`SELECT name, kind, library, ambient, start_byte, end_byte
FROM declarations
WHERE workspace_key = ? AND name = ?
ORDER BY library, kind`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare lookup stmt: %w", err)
	}

	return &SQLiteDeclarationStore{
		db:           db,
		workspaceKey: key,
		lookupStmt:   lookupStmt,
		lookupCache:  make(map[string][]DeclarationRecord),
	}, nil
}

func migrateSchema(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version >= schemaVersion {
		return nil
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS declarations (
  workspace_key TEXT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  library TEXT NOT NULL,
  ambient INTEGER NOT NULL DEFAULT 0,
  start_byte INTEGER NOT NULL DEFAULT 0,
  end_byte INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (workspace_key, name, kind, library)
);
CREATE INDEX IF NOT EXISTS idx_declarations_workspace_name ON declarations(workspace_key, name);

CREATE TABLE IF NOT EXISTS exports (
  workspace_key TEXT PRIMARY KEY,
  pass_id TEXT NOT NULL DEFAULT '',
  exported_at INTEGER NOT NULL,
  files INTEGER NOT NULL DEFAULT 0,
  declarations INTEGER NOT NULL DEFAULT 0
);

PRAGMA user_version = 1;
`)
	if err != nil {
		return fmt.Errorf("create v1 schema: %w", err)
	}
	return nil
}

func (s *SQLiteDeclarationStore) clearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.lookupCache = make(map[string][]DeclarationRecord)
}

// Replace swaps the stored snapshot of the workspace for infos in one
// transaction.
func (s *SQLiteDeclarationStore) Replace(ctx context.Context, infos []resolver.DeclarationInfo, meta ExportMeta) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM declarations WHERE workspace_key = ?`, s.workspaceKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear declarations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO declarations
  (workspace_key, name, kind, library, ambient, start_byte, end_byte)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert stmt: %w", err)
	}
	defer stmt.Close()

	for _, info := range infos {
		rec := recordOf(info)
		if _, err := stmt.ExecContext(ctx, s.workspaceKey, rec.Name, rec.Kind, rec.From, rec.Ambient, rec.Start, rec.End); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert declaration %q: %w", rec.Name, err)
		}
	}

	exportedAt := meta.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO exports (workspace_key, pass_id, exported_at, files, declarations)
VALUES (?, ?, ?, ?, ?)`, s.workspaceKey, meta.PassID, exportedAt.Unix(), meta.Files, len(infos)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record export: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export tx: %w", err)
	}
	s.clearCache()
	return nil
}

// Lookup returns the stored declarations named name.
func (s *SQLiteDeclarationStore) Lookup(ctx context.Context, name string) ([]DeclarationRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.cacheMu.RLock()
	if res, ok := s.lookupCache[name]; ok {
		s.cacheMu.RUnlock()
		return res, nil
	}
	s.cacheMu.RUnlock()

	rows, err := s.lookupStmt.QueryContext(ctx, s.workspaceKey, name)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	res, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.lookupCache[name] = res
	s.cacheMu.Unlock()
	return res, nil
}

// Search returns declarations whose name starts with prefix, ordered by name.
func (s *SQLiteDeclarationStore) Search(ctx context.Context, prefix string, limit int) ([]DeclarationRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx, `SELECT name, kind, library, ambient, start_byte, end_byte
FROM declarations
WHERE workspace_key = ? AND name LIKE ? ESCAPE '\'
ORDER BY name, library
LIMIT ?`, s.workspaceKey, escaped+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", prefix, err)
	}
	return scanRecords(rows)
}

// Meta returns the metadata of the last export, if any.
func (s *SQLiteDeclarationStore) Meta(ctx context.Context) (ExportMeta, bool, error) {
	var (
		meta       ExportMeta
		exportedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT pass_id, exported_at, files, declarations FROM exports WHERE workspace_key = ?`, s.workspaceKey).
		Scan(&meta.PassID, &exportedAt, &meta.Files, &meta.Declarations)
	if err == sql.ErrNoRows {
		return ExportMeta{}, false, nil
	}
	if err != nil {
		return ExportMeta{}, false, fmt.Errorf("read export meta: %w", err)
	}
	meta.ExportedAt = time.Unix(exportedAt, 0)
	return meta, true, nil
}

func (s *SQLiteDeclarationStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.lookupStmt != nil {
		_ = s.lookupStmt.Close()
	}
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]DeclarationRecord, error) {
	defer rows.Close()
	out := make([]DeclarationRecord, 0)
	for rows.Next() {
		var rec DeclarationRecord
		if err := rows.Scan(&rec.Name, &rec.Kind, &rec.From, &rec.Ambient, &rec.Start, &rec.End); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
