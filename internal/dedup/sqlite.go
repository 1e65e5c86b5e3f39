package dedup

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Index records which output lines have already been emitted, so a
// resumed run that reprocesses the range above the checkpoint does
// not append duplicates. Lines are stored as SHA-256 digests.
type Index struct {
	db      *sql.DB
	closed  bool
	writeMu sync.Mutex
}

// NewIndex opens (or creates) a dedup index at the given path.
func NewIndex(dbPath string) (*Index, error) {
	// Configure SQLite for concurrent access
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=60000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open dedup index: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	idx := &Index{db: db}
	if err := idx.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create dedup tables: %w", err)
	}

	return idx, nil
}

func (x *Index) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS seen (
		digest TEXT NOT NULL PRIMARY KEY,
		created_at DATETIME NOT NULL
	);
	`

	_, err := x.db.Exec(query)
	return err
}

// MarkSeen records the line and reports whether it was new. A false
// return means the same line was already emitted by this or an
// earlier run.
func (x *Index) MarkSeen(line string) (bool, error) {
	if x.closed {
		return false, fmt.Errorf("dedup index is closed")
	}

	digest := sha256.Sum256([]byte(line))
	key := hex.EncodeToString(digest[:])

	// Serialize writes to avoid SQLITE_BUSY from multiple concurrent writers
	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	var inserted bool
	err := x.retryOnBusy(func() error {
		res, err := x.db.Exec(
			`INSERT OR IGNORE INTO seen (digest, created_at) VALUES (?, ?)`,
			key, time.Now(),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})

	return inserted, err
}

// retryOnBusy retries the operation if SQLite is busy
func (x *Index) retryOnBusy(operation func() error) error {
	const maxRetries = 10
	baseDelay := 50 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}

		if !isSQLiteBusyError(err) || attempt == maxRetries-1 {
			return err
		}

		time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
	}

	return err
}

// isSQLiteBusyError checks if the error is a SQLite busy error
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

// Close closes the database connection
func (x *Index) Close() error {
	x.closed = true
	return x.db.Close()
}
