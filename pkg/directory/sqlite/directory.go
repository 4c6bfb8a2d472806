// Package sqlite provides a recipient directory backed by an SQLite database.
package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/directory"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS recipients (
	address TEXT PRIMARY KEY,
	type    TEXT NOT NULL
);
`

// Directory is a directory.Directory stored in an SQLite database.
type Directory struct {
	db *sql.DB
}

var _ directory.Store = &Directory{}

// New opens the database at c.Path, creating the schema if needed.
func New(c config.Directory) (directory.Directory, error) {
	return Open(c.Path)
}

// Open opens the database at path, creating the schema if needed.
func Open(path string) (*Directory, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite directory path cannot be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory DB: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		// WAL is an optimization, the directory works without it.
		log.Warn().Str("module", "directory").Str("path", path).Err(err).
			Msg("Failed to enable WAL journal")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create directory schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("directory DB ping failed: %w", err)
	}
	return &Directory{db: db}, nil
}

// Find implements directory.Directory.
func (d *Directory) Find(ctx context.Context, address string) (*directory.Entry, error) {
	key := directory.NormalizeAddress(address)
	var typeName string
	err := d.db.QueryRowContext(ctx,
		`SELECT type FROM recipients WHERE address = ?`, key).Scan(&typeName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory lookup for %q failed: %w", key, err)
	}
	t, err := directory.ParseRecipientType(typeName)
	if err != nil {
		t = directory.Unknown
	}
	return &directory.Entry{Address: key, Type: t}, nil
}

// Put stores e, replacing any existing entry for the same address.
func (d *Directory) Put(ctx context.Context, e directory.Entry) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO recipients (address, type) VALUES (?, ?)
		 ON CONFLICT(address) DO UPDATE SET type = excluded.type`,
		directory.NormalizeAddress(e.Address), e.Type.String())
	return err
}

// Delete removes the entry for address.
func (d *Directory) Delete(ctx context.Context, address string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM recipients WHERE address = ?`, directory.NormalizeAddress(address))
	return err
}

// Import reads lines of the form `address [type]` and stores them in a single transaction.
// Blank lines and lines starting with # are skipped.  Returns the number of entries stored.
func (d *Directory) Import(ctx context.Context, r io.Reader) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO recipients (address, type) VALUES (?, ?)
		 ON CONFLICT(address) DO UPDATE SET type = excluded.type`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		t := directory.User
		if len(fields) > 1 {
			if t, err = directory.ParseRecipientType(fields[1]); err != nil {
				return 0, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, directory.NormalizeAddress(fields[0]), t.String()); err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Close closes the underlying database.
func (d *Directory) Close() error {
	return d.db.Close()
}
