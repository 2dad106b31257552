package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sqlite "modernc.org/sqlite"

	"github.com/jazz-17/kiro-chatbot/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
)

// DefaultDimension is the embedding dimension when none is configured.
// Matches OpenAI's text-embedding-3-small.
const DefaultDimension = 1536

// sqliteConstraint is the SQLite primary error code for constraint
// violations (foreign key, unique, check).
const sqliteConstraint = 19

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// letting store views run against either.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite-backed vector record store. The embedding dimension
// is fixed at construction; changing it requires rebuilding all stored
// vectors.
type Store struct {
	db           *sql.DB
	path         string
	dimension    int
	nativeSearch bool
}

// Option configures the store.
type Option func(*Store)

// WithDimension sets the embedding dimension (default 1536).
func WithDimension(dim int) Option {
	return func(s *Store) {
		if dim > 0 {
			s.dimension = dim
		}
	}
}

// WithoutNativeSearch disables the SQL cosine operator for this store,
// as if the vector extension were not installed. The search engine then
// exercises its brute-force fallback. Primarily for tests and constrained
// deployments.
func WithoutNativeSearch() Option {
	return func(s *Store) {
		s.nativeSearch = false
	}
}

// NewStore opens (or creates) the database under dataDir and runs
// migrations. If dataDir is empty, defaults to ~/.kiro/data.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kiro", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "kiro.db")

	// Open database with WAL mode for better concurrency. Pragmas go in the
	// DSN so every pooled connection gets them, foreign_keys in particular.
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:           db,
		path:         dbPath,
		dimension:    DefaultDimension,
		nativeSearch: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.nativeSearch {
		registerVectorFunctions()
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Dimension returns the configured embedding dimension.
func (s *Store) Dimension() int {
	return s.dimension
}

var (
	_ driven.Stores   = (*Store)(nil)
	_ driven.Stores   = (*Tx)(nil)
	_ driven.TxRunner = (*Store)(nil)
)

// Chunks returns a ChunkStore backed by this store.
func (s *Store) Chunks() driven.ChunkStore {
	return &chunkStore{q: s.db, db: s.db, dim: s.dimension}
}

// Documents returns a DocumentStore backed by this store.
func (s *Store) Documents() driven.DocumentStore {
	return &documentStore{q: s.db}
}

// Tx exposes transaction-bound store views inside InTx.
type Tx struct {
	tx  *sql.Tx
	dim int
}

// Chunks returns a ChunkStore bound to this transaction.
func (t *Tx) Chunks() driven.ChunkStore {
	return &chunkStore{q: t.tx, dim: t.dim}
}

// Documents returns a DocumentStore bound to this transaction.
func (t *Tx) Documents() driven.DocumentStore {
	return &documentStore{q: t.tx}
}

// InTx runs fn inside one transaction. All store operations performed
// through the supplied views share its boundary; any error rolls
// everything back.
func (s *Store) InTx(ctx context.Context, fn func(stores driven.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&Tx{tx: tx, dim: s.dimension}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// mapWriteErr translates SQLite constraint failures (missing parent
// document, duplicate chunk index) into domain.ErrIntegrity.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqliteConstraint {
		return fmt.Errorf("%v: %w", err, domain.ErrIntegrity)
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return fmt.Errorf("%v: %w", err, domain.ErrIntegrity)
	}
	return err
}
