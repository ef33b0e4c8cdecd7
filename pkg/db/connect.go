package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

// validSyncModes lists the allowed values for the synchronous pragma.
var validSyncModes = map[string]bool{
	"OFF":    true,
	"NORMAL": true,
	"FULL":   true,
	"EXTRA":  true,
}

// OpenDBConnection establishes a connection to a SQLite database with specified options.
// baseDSN is the initial data source name (e.g., file path or ":memory:").
// enableWAL sets the journal_mode to WAL if true.
// syncPragma sets the synchronous pragma (e.g., "OFF", "NORMAL", "FULL", "EXTRA").
//
// The pool is limited to a single connection: connection-scoped pragmas
// (foreign keys, max_page_count) and in-memory databases only hold on the
// connection they were applied to.
func OpenDBConnection(baseDSN string, enableWAL bool, syncPragma string) (*sql.DB, error) {
	params := url.Values{}

	if enableWAL {
		params.Add("_journal_mode", "WAL")
	}

	if syncPragma != "" {
		ucSyncPragma := strings.ToUpper(syncPragma)
		if !validSyncModes[ucSyncPragma] {
			return nil, fmt.Errorf("invalid sync pragma value: %s. Must be one of OFF, NORMAL, FULL, EXTRA", syncPragma)
		}
		params.Add("_synchronous", ucSyncPragma)
	}

	constructedDSN := baseDSN
	if len(params) > 0 {
		if strings.Contains(baseDSN, "?") {
			constructedDSN += "&" + params.Encode()
		} else {
			constructedDSN += "?" + params.Encode()
		}
	}

	db, err := sql.Open("sqlite3", constructedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with DSN '%s': %w", constructedDSN, err)
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database with DSN '%s': %w", constructedDSN, err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign key support for DSN '%s': %w", constructedDSN, err)
	}

	return db, nil
}

// SetQuota caps the database file at roughly quotaBytes by limiting its page
// count. Writes past the cap fail with SQLITE_FULL (see IsFull). A
// non-positive quota leaves the database unbounded. SQLite never lowers the
// limit below the pages already in use.
func SetQuota(db *sql.DB, quotaBytes int64) error {
	if quotaBytes <= 0 {
		return nil
	}
	var pageSize int64
	if err := db.QueryRow("PRAGMA page_size;").Scan(&pageSize); err != nil {
		return fmt.Errorf("failed to read page size: %w", err)
	}
	if pageSize <= 0 {
		return fmt.Errorf("unexpected page size %d", pageSize)
	}
	pages := quotaBytes / pageSize
	if pages < 1 {
		pages = 1
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA max_page_count = %d;", pages)); err != nil {
		return fmt.Errorf("failed to set max_page_count to %d: %w", pages, err)
	}
	return nil
}

// IsFull reports whether err is SQLite's "database or disk is full".
func IsFull(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrFull
	}
	return false
}
