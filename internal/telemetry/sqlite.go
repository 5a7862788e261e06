package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLitePublisher appends events to a local SQLite database.
type SQLitePublisher struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the event database at path.
func OpenSQLite(path string) (*SQLitePublisher, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// One writer keeps SQLITE_BUSY away.
	db.SetMaxOpenConns(1)
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		model_id TEXT,
		ts_unix_ms INTEGER NOT NULL,
		fields TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, ts_unix_ms);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &SQLitePublisher{db: db}, nil
}

func (p *SQLitePublisher) Publish(e Event) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = p.db.Exec(
		`INSERT INTO events (id, session_id, name, model_id, ts_unix_ms, fields) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Name, e.ModelID, ts.UnixMilli(), string(fields),
	)
	return err
}

// Recent returns up to limit events, newest first.
func (p *SQLitePublisher) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, session_id, name, model_id, ts_unix_ms, fields FROM events ORDER BY ts_unix_ms DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			e      Event
			model  sql.NullString
			ms     int64
			fields sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Name, &model, &ms, &fields); err != nil {
			return nil, err
		}
		e.ModelID = model.String
		e.Time = time.UnixMilli(ms)
		if fields.Valid && fields.String != "" && fields.String != "null" {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("decode fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *SQLitePublisher) Close() error { return p.db.Close() }
