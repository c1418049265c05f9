package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const stateFileName = "state.db"

// ErrNotFound is returned when no state is stored for a timer.
var ErrNotFound = errors.New("timer state not found")

// Record is one persisted timer state.
type Record struct {
	ID        string
	Version   int
	Payload   string
	UpdatedAt time.Time
}

// StateStore keeps serialized timer states in SQLite, one row per timer id.
// The schema version travels next to the payload.
type StateStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStateStore opens or creates a state database at the given path.
func OpenStateStore(path string) (*StateStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &StateStore{db: db, now: time.Now}, nil
}

// DefaultStatePath returns the state database location under the user config dir.
func DefaultStatePath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, stateFileName), nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS timer_states (
			id         TEXT PRIMARY KEY,
			version    INTEGER NOT NULL,
			payload    TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// Save inserts or replaces the state of one timer.
func (store *StateStore) Save(ctx context.Context, id string, version int, payload string) error {
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO timer_states (id, version, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, id, version, payload, store.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving state %q: %w", id, err)
	}
	return nil
}

// Load returns the stored state of one timer, or ErrNotFound.
func (store *StateStore) Load(ctx context.Context, id string) (Record, error) {
	row := store.db.QueryRowContext(ctx, `
		SELECT id, version, payload, updated_at
		FROM timer_states WHERE id = ?
	`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading state %q: %w", id, err)
	}
	return record, nil
}

// List returns every stored state ordered by timer id.
func (store *StateStore) List(ctx context.Context) ([]Record, error) {
	rows, err := store.db.QueryContext(ctx, `
		SELECT id, version, payload, updated_at
		FROM timer_states ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying states: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning state: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Delete removes the stored state of one timer. Deleting a missing id returns ErrNotFound.
func (store *StateStore) Delete(ctx context.Context, id string) error {
	result, err := store.db.ExecContext(ctx, `DELETE FROM timer_states WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting state %q: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting state %q: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (store *StateStore) Close() error {
	return store.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var record Record
	var updatedAt string
	if err := row.Scan(&record.ID, &record.Version, &record.Payload, &updatedAt); err != nil {
		return Record{}, err
	}
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return record, nil
}
