package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Storage loads and saves the Record.
//
// note: fault injection point
type Storage interface {
	// Read returns the persisted record, or an empty one if nothing was saved yet.
	Read(ctx context.Context) (*Record, error)
	Write(ctx context.Context, record *Record) error
}

// Open picks a storage backend from a location:
//   - "libsql://..." is a remote libsql database
//   - "sqlite://<path>" or a path ending in .db/.sqlite is a local sqlite database
//   - anything else is a JSON file
func Open(location string) (Storage, error) {
	switch {
	case strings.HasPrefix(location, "libsql://"):
		return OpenSQL("libsql", location)
	case strings.HasPrefix(location, "sqlite://"):
		return OpenSQL("sqlite", strings.TrimPrefix(location, "sqlite://"))
	case strings.HasSuffix(location, ".db"), strings.HasSuffix(location, ".sqlite"):
		return OpenSQL("sqlite", location)
	}
	return NewFileStorage(location), nil
}

// FileStorage keeps the record as a JSON document on disk.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) FileStorage {
	return FileStorage{path: path}
}

func (s FileStorage) Path() string {
	return s.path
}

func (s FileStorage) Read(ctx context.Context) (*Record, error) {
	contents, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(strings.TrimSpace(string(contents))) == 0 {
		return NewRecord(), nil
	}

	// json5 so that a hand edited store (ex. clearing the error flag) with
	// comments or trailing commas still loads
	var doc document
	err = json5.Unmarshal(contents, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode store %s: %w", s.path, err)
	}
	return fromDocument(doc), nil
}

func (s FileStorage) Write(ctx context.Context, record *Record) error {
	serialized, err := json.MarshalIndent(record.toDocument(), "", "\t")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(serialized)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write store: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

const schema = `create table if not exists store (
	key text primary key,
	value text not null
)`

const recordKey = "record"

// SQLStorage keeps the record as a JSON document in a single key/value row.
type SQLStorage struct {
	db *sql.DB
}

func OpenSQL(driver, dsn string) (SQLStorage, error) {
	if dsn == "" {
		return SQLStorage{}, fmt.Errorf("a path was not specified")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return SQLStorage{}, err
	}
	if driver == "sqlite" {
		// sqlite only allows one writer, a single connection also keeps
		// :memory: databases alive between calls
		db.SetMaxOpenConns(1)
		if dsn != ":memory:" {
			_, err = db.Exec("PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return SQLStorage{}, err
			}
		}
	}
	return NewSQLStorage(db)
}

// NewSQLStorage creates the store table if needed.
func NewSQLStorage(db *sql.DB) (SQLStorage, error) {
	_, err := db.Exec(schema)
	if err != nil {
		return SQLStorage{}, fmt.Errorf("create store table: %w", err)
	}
	return SQLStorage{db: db}, nil
}

func (s SQLStorage) Close() error {
	return s.db.Close()
}

func (s SQLStorage) Read(ctx context.Context) (*Record, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "select value from store where key = ?", recordKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return NewRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	var doc document
	err = json.Unmarshal([]byte(value), &doc)
	if err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return fromDocument(doc), nil
}

func (s SQLStorage) Write(ctx context.Context, record *Record) error {
	serialized, err := json.Marshal(record.toDocument())
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`insert into store(key, value) values (?, ?)
		on conflict(key) do update set value = excluded.value`,
		recordKey, string(serialized),
	)
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
