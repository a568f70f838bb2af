package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/familycal/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			event_date TEXT NOT NULL,
			event_time TEXT NOT NULL,
			attendees INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date)`,
		// CalDAV push
		`ALTER TABLE events ADD COLUMN caldav_uid TEXT DEFAULT ''`,
		`CREATE INDEX IF NOT EXISTS idx_events_caldav ON events(caldav_uid)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

const eventColumns = `id, title, description, event_date, event_time, attendees, caldav_uid, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventDate, &e.EventTime, &e.Attendees, &e.CalDAVUID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// === Events ===

// CreateEvent inserts e and fills in its ID and timestamps
func (s *Storage) CreateEvent(ctx context.Context, e *domain.Event) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (title, description, event_date, event_time, attendees, caldav_uid, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.EventDate, e.EventTime, e.Attendees, e.CalDAVUID, now, now,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// GetEvent returns an event by ID, or domain.ErrNotFound
func (s *Storage) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`,
		id,
	)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

// UpdateEvent overwrites the editable fields of an existing event
func (s *Storage) UpdateEvent(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, event_date = ?, event_time = ?, attendees = ?, caldav_uid = ?, updated_at = ?
		 WHERE id = ?`,
		e.Title, e.Description, e.EventDate, e.EventTime, e.Attendees, e.CalDAVUID, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetEventCalDAVUID records the UID the event was pushed under
func (s *Storage) SetEventCalDAVUID(ctx context.Context, id int64, uid string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE events SET caldav_uid = ? WHERE id = ?`, uid, id)
	return err
}

// DeleteEvent deletes an event by ID
func (s *Storage) DeleteEvent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListEvents returns all events in insertion order
func (s *Storage) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// CountEvents returns the number of stored events
func (s *Storage) CountEvents(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
