// Package history persists the alert audit trail.
//
// Every lifecycle transition and responder event lands in a local sqlite
// database so an emergency's timeline survives process restarts. The
// machine treats writes as best-effort; this package still returns real
// errors so callers can log them.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id TEXT NOT NULL,
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	occurred_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_alert ON transitions(alert_id, occurred_at);

CREATE TABLE IF NOT EXISTS responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id TEXT NOT NULL,
	responder_id TEXT NOT NULL,
	responder_name TEXT,
	kind TEXT NOT NULL,
	latitude REAL,
	longitude REAL,
	occurred_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_responses_alert ON responses(alert_id, occurred_at);
`

// pragmas tune sqlite for a long-lived single-process writer.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// EntryKind distinguishes timeline rows.
type EntryKind string

const (
	EntryTransition EntryKind = "transition"
	EntryResponse   EntryKind = "response"
)

// Entry is one row of an alert's timeline. Kind selects which field group
// is meaningful.
type Entry struct {
	Kind       EntryKind
	AlertID    string
	OccurredAt time.Time

	// Transition fields.
	From  model.AlertStatus
	To    model.AlertStatus
	Actor string

	// Response fields.
	ResponderID   string
	ResponderName string
	ResponseKind  model.ResponseKind
	Location      *model.LocationSample
}

// Store is the sqlite-backed audit trail.
type Store struct {
	db *sql.DB

	logger logger.Logger
}

// Open opens (creating if needed) the history database at path and
// bootstraps the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap history schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.Get().Named("history"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RecordTransition appends one lifecycle transition.
func (s *Store) RecordTransition(ctx context.Context, alertID string, from, to model.AlertStatus, actorID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (alert_id, from_status, to_status, actor_id, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		alertID, string(from), string(to), actorID, at.UTC())
	if err != nil {
		metrics.RecordHistoryWriteError()
		return fmt.Errorf("record transition: %w", err)
	}
	metrics.RecordHistoryWrite()
	return nil
}

// RecordResponse appends one responder event.
func (s *Store) RecordResponse(ctx context.Context, alertID string, r model.Response) error {
	var lat, lng interface{}
	if r.Location != nil {
		lat, lng = r.Location.Latitude, r.Location.Longitude
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (alert_id, responder_id, responder_name, kind, latitude, longitude, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alertID, r.ResponderID, r.ResponderName, string(r.Kind), lat, lng, r.Timestamp.UTC())
	if err != nil {
		metrics.RecordHistoryWriteError()
		return fmt.Errorf("record response: %w", err)
	}
	metrics.RecordHistoryWrite()
	return nil
}

// AlertTimeline returns every recorded event for one alert, oldest first.
// Transitions sort before responses carrying the same timestamp.
func (s *Store) AlertTimeline(ctx context.Context, alertID string) ([]Entry, error) {
	entries, err := s.transitions(ctx, alertID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses(ctx, alertID)
	if err != nil {
		return nil, err
	}
	entries = append(entries, responses...)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].Kind == EntryTransition && entries[j].Kind == EntryResponse
		}
		return entries[i].OccurredAt.Before(entries[j].OccurredAt)
	})
	return entries, nil
}

// RecentAlerts returns the alert IDs with the newest recorded activity,
// most recent first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT alert_id FROM (
			SELECT alert_id, occurred_at FROM transitions
			UNION ALL
			SELECT alert_id, occurred_at FROM responses
		 ) GROUP BY alert_id ORDER BY MAX(occurred_at) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recent alert: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) transitions(ctx context.Context, alertID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_status, to_status, actor_id, occurred_at
		 FROM transitions WHERE alert_id = ? ORDER BY occurred_at, id`, alertID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{Kind: EntryTransition, AlertID: alertID}
		var from, to string
		if err := rows.Scan(&from, &to, &e.Actor, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.From = model.AlertStatus(from)
		e.To = model.AlertStatus(to)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) responses(ctx context.Context, alertID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT responder_id, responder_name, kind, latitude, longitude, occurred_at
		 FROM responses WHERE alert_id = ? ORDER BY occurred_at, id`, alertID)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{Kind: EntryResponse, AlertID: alertID}
		var name sql.NullString
		var kind string
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&e.ResponderID, &name, &kind, &lat, &lng, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		e.ResponderName = name.String
		e.ResponseKind = model.ResponseKind(kind)
		if lat.Valid && lng.Valid {
			e.Location = &model.LocationSample{
				Latitude:  lat.Float64,
				Longitude: lng.Float64,
				Timestamp: e.OccurredAt,
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
