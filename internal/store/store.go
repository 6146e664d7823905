// Package store keeps a local sqlite log of interface sessions and the crash
// reports raised during them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/telemetry"
	"vehicle-interface/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	model        TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	topology     TEXT NOT NULL,
	started_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS crash_reports (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT,
	kind         TEXT NOT NULL,
	message      TEXT NOT NULL,
	detail       TEXT,
	tags         TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);
`

// Fixed width so that stored times sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SessionTag is the report tag that links a crash report to its session.
const SessionTag = "session"

type Session struct {
	ID          string
	Model       string
	Fingerprint fingerprint.Set
	Topology    types.HardwareTopology
	StartedAt   time.Time
}

type CrashReport struct {
	ID        int64
	SessionID string
	Kind      telemetry.Kind
	Message   string
	Detail    map[string]string
	Tags      map[string]string
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "init db '%s'", path)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateSession records the start of a session and returns it with a fresh
// time ordered id.
func (s *Store) CreateSession(ctx context.Context, model string, fp fingerprint.Set, topo types.HardwareTopology) (Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, errors.Wrap(err, "session id")
	}
	sess := Session{
		ID:          id.String(),
		Model:       model,
		Fingerprint: fp,
		Topology:    topo,
		StartedAt:   time.Now().UTC(),
	}

	fpJSON, err := json.Marshal(fingerprint.NewFile(model, nil, fp).Buses)
	if err != nil {
		return Session{}, errors.Wrap(err, "marshal fingerprint")
	}
	topoJSON, err := json.Marshal(topo)
	if err != nil {
		return Session{}, errors.Wrap(err, "marshal topology")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, model, fingerprint, topology, started_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, model, string(fpJSON), string(topoJSON), sess.StartedAt.Format(timeFormat),
	)
	if err != nil {
		return Session{}, errors.Wrap(err, "insert session")
	}
	return sess, nil
}

// Sessions lists the most recent sessions first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, fingerprint, topology, started_at FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query sessions")
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess             Session
			fpJSON, topoJSON string
			startedAt        string
			buses            map[int]fingerprint.Fingerprint
		)
		if err := rows.Scan(&sess.ID, &sess.Model, &fpJSON, &topoJSON, &startedAt); err != nil {
			return nil, errors.Wrap(err, "scan session")
		}
		if err := json.Unmarshal([]byte(fpJSON), &buses); err != nil {
			return nil, errors.Wrapf(err, "session %s fingerprint", sess.ID)
		}
		if sess.Fingerprint, err = (fingerprint.File{Buses: buses}).Set(); err != nil {
			return nil, errors.Wrapf(err, "session %s fingerprint", sess.ID)
		}
		if err := json.Unmarshal([]byte(topoJSON), &sess.Topology); err != nil {
			return nil, errors.Wrapf(err, "session %s topology", sess.ID)
		}
		if sess.StartedAt, err = time.Parse(timeFormat, startedAt); err != nil {
			return nil, errors.Wrapf(err, "session %s start time", sess.ID)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Capture stores a report. It makes the store usable as a telemetry sink.
func (s *Store) Capture(ctx context.Context, r telemetry.Report) error {
	detail, err := json.Marshal(r.Detail)
	if err != nil {
		return errors.Wrap(err, "marshal detail")
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return errors.Wrap(err, "marshal tags")
	}
	var session sql.NullString
	if id := r.Tags[SessionTag]; id != "" {
		session = sql.NullString{String: id, Valid: true}
	}
	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crash_reports (session_id, kind, message, detail, tags, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		session, string(r.Kind), r.Message, string(detail), string(tags), at.UTC().Format(timeFormat),
	)
	return errors.Wrap(err, "insert crash report")
}

// CrashReports lists the reports of one session, oldest first. An empty id
// lists every report.
func (s *Store) CrashReports(ctx context.Context, sessionID string) ([]CrashReport, error) {
	query := `SELECT id, COALESCE(session_id, ''), kind, message, detail, tags, created_at FROM crash_reports`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query crash reports")
	}
	defer rows.Close()

	var out []CrashReport
	for rows.Next() {
		var (
			rep             CrashReport
			kind, createdAt string
			detail, tags    sql.NullString
		)
		if err := rows.Scan(&rep.ID, &rep.SessionID, &kind, &rep.Message, &detail, &tags, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan crash report")
		}
		rep.Kind = telemetry.Kind(kind)
		if detail.Valid {
			if err := json.Unmarshal([]byte(detail.String), &rep.Detail); err != nil {
				return nil, errors.Wrapf(err, "crash report %d detail", rep.ID)
			}
		}
		if tags.Valid {
			if err := json.Unmarshal([]byte(tags.String), &rep.Tags); err != nil {
				return nil, errors.Wrapf(err, "crash report %d tags", rep.ID)
			}
		}
		if rep.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, errors.Wrapf(err, "crash report %d time", rep.ID)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
