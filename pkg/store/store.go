// Package store is a SQLite-backed cache of compiled chunks, keyed by the
// SHA-256 of their canonical CBOR encoding.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/jscore/pkg/bytecode"
)

// ErrNotFound indicates the requested chunk isn't cached
var ErrNotFound = errors.New("chunk not found")

var log = commonlog.GetLogger("jscore.store")

// Entry describes a cached chunk.
type Entry struct {
	Hash    string
	Name    string
	Size    int
	Created time.Time
}

// Cache stores serialized chunks. It is safe for concurrent use.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serializes writers and keeps the pragma below in
	// effect for every statement.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		hash TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened chunk cache %s", path)
	return &Cache{db: db, path: path}, nil
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.path }

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Hash returns the content hash of a serialized chunk.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores chunk and returns its content hash. Storing identical
// content again is a no-op.
func (c *Cache) Put(chunk *bytecode.Chunk) (string, error) {
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return "", err
	}
	hash := Hash(data)

	res, err := c.db.Exec(
		"INSERT OR IGNORE INTO chunks (hash, name, data, created) VALUES (?, ?, ?, ?)",
		hash, chunk.Name, data, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("saving chunk: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Infof("cached %s as %s (%d bytes)", chunk.Name, hash[:12], len(data))
	}
	return hash, nil
}

// Get loads the chunk stored under hash.
func (c *Cache) Get(hash string) (*bytecode.Chunk, error) {
	var data []byte
	err := c.db.QueryRow("SELECT data FROM chunks WHERE hash = ?", hash).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	if got := Hash(data); got != hash {
		return nil, fmt.Errorf("chunk %s is corrupt (content hash %s)", hash, got)
	}
	return bytecode.UnmarshalChunk(data)
}

// List returns every cached chunk, ordered by name then hash.
func (c *Cache) List() ([]Entry, error) {
	rows, err := c.db.Query("SELECT hash, name, length(data), created FROM chunks ORDER BY name, hash")
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.Hash, &e.Name, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		e.Created = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the chunk stored under hash.
func (c *Cache) Delete(hash string) error {
	res, err := c.db.Exec("DELETE FROM chunks WHERE hash = ?", hash)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
