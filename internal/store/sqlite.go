package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database. Test and
// archive documents are stored as JSON columns; events get real columns so
// the dimensional fields stay queryable.
type SQLiteStore struct {
	db            *sql.DB
	eventCapacity int
}

const schema = `
CREATE TABLE IF NOT EXISTS tests (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    doc TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_tests_status ON tests(status);

CREATE TABLE IF NOT EXISTS archived_tests (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    archived_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    test_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    device_type TEXT,
    city TEXT,
    event_category TEXT,
    scroll_depth REAL,
    time_on_page REAL,
    user_id TEXT,
    session_id TEXT,
    seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_test_variant ON events(test_id, variant_id);
CREATE INDEX IF NOT EXISTS idx_events_seq ON events(seq);

CREATE TABLE IF NOT EXISTS production_variants (
    page TEXT PRIMARY KEY,
    test_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    doc TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS prediction_model (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    doc TEXT NOT NULL
);
`

// OpenSQLite opens (creating if needed) a SQLite-backed store at dbPath.
func OpenSQLite(dbPath string, eventCapacity int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if eventCapacity <= 0 {
		eventCapacity = DefaultEventCapacity
	}
	return &SQLiteStore{db: db, eventCapacity: eventCapacity}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the underlying connection for health checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) ListTests(ctx context.Context) ([]*Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM tests ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		var test Test
		if err := json.Unmarshal([]byte(doc), &test); err != nil {
			return nil, fmt.Errorf("failed to unmarshal test: %w", err)
		}
		tests = append(tests, &test)
	}
	return tests, rows.Err()
}

func (s *SQLiteStore) GetTest(ctx context.Context, id string) (*Test, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM tests WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	var test Test
	if err := json.Unmarshal([]byte(doc), &test); err != nil {
		return nil, fmt.Errorf("failed to unmarshal test: %w", err)
	}
	return &test, nil
}

func (s *SQLiteStore) PutTest(ctx context.Context, test *Test) error {
	doc, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("failed to marshal test: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tests (id, status, doc, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, doc = excluded.doc`,
		test.ID, string(test.Status), string(doc), test.StartDate.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert test: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteTest(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListArchived(ctx context.Context) ([]*ArchivedTest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM archived_tests ORDER BY archived_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer rows.Close()

	var tests []*ArchivedTest
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan archived test: %w", err)
		}
		var test ArchivedTest
		if err := json.Unmarshal([]byte(doc), &test); err != nil {
			return nil, fmt.Errorf("failed to unmarshal archived test: %w", err)
		}
		tests = append(tests, &test)
	}
	return tests, rows.Err()
}

func (s *SQLiteStore) AppendArchived(ctx context.Context, test *ArchivedTest) error {
	doc, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("failed to marshal archived test: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO archived_tests (id, doc, archived_at) VALUES (?, ?, ?)`,
		test.ID, string(doc), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive test: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, test_id, variant_id, event_type, timestamp, device_type,
		                     city, event_category, scroll_depth, time_on_page, user_id, session_id, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		         COALESCE((SELECT MAX(seq) FROM events), 0) + 1)`,
		event.ID, event.TestID, event.VariantID, event.Type, event.Timestamp.Unix(),
		event.DeviceType, event.City, event.EventCategory, event.ScrollDepth,
		event.TimeOnPage, event.UserID, event.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	// Trim the oldest events once capacity is exceeded.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM events WHERE seq <= (SELECT MAX(seq) FROM events) - ?`, s.eventCapacity)
	if err != nil {
		return fmt.Errorf("failed to trim events: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_id, variant_id, event_type, timestamp, device_type,
		        city, event_category, scroll_depth, time_on_page, user_id, session_id
		 FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var ts int64
		var deviceType, city, eventCategory, userID, sessionID sql.NullString
		var scrollDepth, timeOnPage sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.TestID, &e.VariantID, &e.Type, &ts, &deviceType,
			&city, &eventCategory, &scrollDepth, &timeOnPage, &userID, &sessionID); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.DeviceType = deviceType.String
		e.City = city.String
		e.EventCategory = eventCategory.String
		e.ScrollDepth = scrollDepth.Float64
		e.TimeOnPage = timeOnPage.Float64
		e.UserID = userID.String
		e.SessionID = sessionID.String
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) SetProductionVariant(ctx context.Context, page string, pv ProductionVariant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO production_variants (page, test_id, variant_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(page) DO UPDATE SET test_id = excluded.test_id,
		                                 variant_id = excluded.variant_id,
		                                 updated_at = excluded.updated_at`,
		page, pv.TestID, pv.VariantID, pv.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set production variant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ProductionVariants(ctx context.Context) (map[string]ProductionVariant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page, test_id, variant_id, updated_at FROM production_variants`)
	if err != nil {
		return nil, fmt.Errorf("failed to list production variants: %w", err)
	}
	defer rows.Close()

	variants := map[string]ProductionVariant{}
	for rows.Next() {
		var page string
		var pv ProductionVariant
		var updatedAt int64
		if err := rows.Scan(&page, &pv.TestID, &pv.VariantID, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan production variant: %w", err)
		}
		pv.UpdatedAt = time.Unix(updatedAt, 0)
		variants[page] = pv
	}
	return variants, rows.Err()
}

func (s *SQLiteStore) AppendRecommendation(ctx context.Context, rec *Recommendation) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO recommendations (doc) VALUES (?)`, string(doc)); err != nil {
		return fmt.Errorf("failed to append recommendation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRecommendations(ctx context.Context) ([]*Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM recommendations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*Recommendation
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		var rec Recommendation
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendation: %w", err)
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) SaveModel(ctx context.Context, model *Model) error {
	doc, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO prediction_model (id, doc) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, string(doc)); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadModel(ctx context.Context) (*Model, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM prediction_model WHERE id = 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	var model Model
	if err := json.Unmarshal([]byte(doc), &model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	return &model, nil
}
