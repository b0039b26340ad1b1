package pseudo

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"qestudio/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"
)

// slowScan is the scan duration past which a warning is logged.
const slowScan = 5 * time.Second

// Options configures an Index.
type Options struct {
	PreferredTags []string
	Extensions    []string
	ScanWorkers   int
}

// Index is a SQLite-backed pseudopotential library.
type Index struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	opts   Options
}

// Open creates or opens the index database at path.
func Open(path string, opts Options) (*Index, error) {
	timer := logging.StartTimer(logging.CategoryPseudo, "pseudo.Open")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.PseudoDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.PseudoDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	if opts.ScanWorkers < 1 {
		opts.ScanWorkers = 1
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".upf", ".UPF"}
	}

	idx := &Index{db: db, dbPath: path, opts: opts}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Pseudo("Opened pseudopotential index at %s", path)
	return idx, nil
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.dbPath
}

func (x *Index) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pseudopotentials (
		path TEXT PRIMARY KEY,
		dir TEXT NOT NULL,
		file TEXT NOT NULL,
		element TEXT NOT NULL,
		tags TEXT NOT NULL,
		dir_rank INTEGER NOT NULL,
		size INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pseudo_element ON pseudopotentials(element);
	CREATE INDEX IF NOT EXISTS idx_pseudo_dir ON pseudopotentials(dir);
	`
	_, err := x.db.Exec(schema)
	return err
}

func (x *Index) hasExtension(name string) bool {
	for _, ext := range x.opts.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Scan re-indexes dirs, replacing whatever was indexed for them before.
// Directories are walked concurrently; dirs[0] has the highest rank. It
// returns the number of files indexed.
func (x *Index) Scan(ctx context.Context, dirs ...string) (int, error) {
	timer := logging.StartTimer(logging.CategoryPseudo, "pseudo.Scan")
	defer timer.StopWithThreshold(slowScan)

	found := make([][]Entry, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.opts.ScanWorkers)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			entries, err := x.walk(gctx, dir, i)
			if err != nil {
				return fmt.Errorf("scan %s: %w", dir, err)
			}
			found[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin scan: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for i, dir := range dirs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pseudopotentials WHERE dir = ?`, cleanDir(dir)); err != nil {
			return 0, fmt.Errorf("clear %s: %w", dir, err)
		}
		for _, e := range found[i] {
			if err := insertEntry(ctx, tx, cleanDir(dir), e); err != nil {
				return 0, err
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit scan: %w", err)
	}

	logging.Pseudo("Indexed %d pseudopotentials from %d directories", n, len(dirs))
	return n, nil
}

func (x *Index) walk(ctx context.Context, dir string, rank int) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !x.hasExtension(d.Name()) {
			return nil
		}
		e, ok := x.entryFor(path, rank)
		if !ok {
			logging.PseudoDebug("Skipping %s: no element prefix", path)
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func (x *Index) entryFor(path string, rank int) (Entry, bool) {
	name := filepath.Base(path)
	element, tags, ok := ParseFileName(name)
	if !ok {
		return Entry{}, false
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return Entry{Path: path, File: name, Element: element, Tags: tags, DirRank: rank, Size: size}, true
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, dir string, e Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pseudopotentials (path, dir, file, element, tags, dir_rank, size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			dir = excluded.dir, file = excluded.file, element = excluded.element,
			tags = excluded.tags, dir_rank = excluded.dir_rank, size = excluded.size`,
		e.Path, dir, e.File, e.Element, strings.Join(e.Tags, ","), e.DirRank, e.Size)
	if err != nil {
		return fmt.Errorf("index %s: %w", e.Path, err)
	}
	return nil
}

// IndexFile adds or refreshes a single file under dir with the given rank.
func (x *Index) IndexFile(ctx context.Context, dir string, rank int, path string) error {
	if !x.hasExtension(filepath.Base(path)) {
		return nil
	}
	e, ok := x.entryFor(path, rank)
	if !ok {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return insertEntry(ctx, x.db, cleanDir(dir), e)
}

// RemoveFile drops a file from the index.
func (x *Index) RemoveFile(ctx context.Context, path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, err := x.db.ExecContext(ctx, `DELETE FROM pseudopotentials WHERE path = ?`, path)
	return err
}

// List returns the candidates for symbol, best first.
func (x *Index) List(ctx context.Context, symbol string) ([]Entry, error) {
	x.mu.RLock()
	rows, err := x.db.QueryContext(ctx,
		`SELECT path, file, element, tags, dir_rank, size FROM pseudopotentials WHERE element = ?`, symbol)
	if err != nil {
		x.mu.RUnlock()
		return nil, fmt.Errorf("query %s: %w", symbol, err)
	}
	var entries []Entry
	for rows.Next() {
		var e Entry
		var tags string
		if err := rows.Scan(&e.Path, &e.File, &e.Element, &tags, &e.DirRank, &e.Size); err != nil {
			rows.Close()
			x.mu.RUnlock()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if tags != "" {
			e.Tags = strings.Split(tags, ",")
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	rows.Close()
	x.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	Rank(entries, x.opts.PreferredTags)
	return entries, nil
}

// Lookup returns the best candidate for symbol or ErrNotFound.
func (x *Index) Lookup(ctx context.Context, symbol string) (Entry, error) {
	entries, err := x.List(ctx, symbol)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	return entries[0], nil
}

// Resolve implements Library. Database errors are logged and reported as
// "not found" because the species engine treats a missing file as a normal
// state.
func (x *Index) Resolve(symbol string) (string, bool) {
	e, err := x.Lookup(context.Background(), symbol)
	if err != nil {
		if !isNotFound(err) {
			logging.PseudoWarn("Resolve %s failed: %v", symbol, err)
		}
		return "", false
	}
	return e.File, true
}

// Count returns the number of indexed files.
func (x *Index) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pseudopotentials`).Scan(&n)
	return n, err
}

func cleanDir(dir string) string {
	return filepath.Clean(dir)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
