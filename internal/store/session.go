package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Session is one recorded run.
type Session struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Rows      int        `json:"rows"`
	Cols      int        `json:"cols"`
	Source    string     `json:"source"`
}

// FrameRecord is one stored landmark datagram.
type FrameRecord struct {
	Seq         uint64
	CapturedAt  time.Time
	HandPresent bool
	Payload     []byte
}

// GenerationRecord is the population after one generation.
type GenerationRecord struct {
	Generation uint64    `json:"generation"`
	RecordedAt time.Time `json:"recorded_at"`
	Population int       `json:"population"`
}

// ActionRecord is one discrete user action.
type ActionRecord struct {
	RecordedAt time.Time `json:"recorded_at"`
	Action     string    `json:"action"`
}

// StartSession creates a new session with a random ID.
func (s *Store) StartSession(ctx context.Context, started time.Time, rows, cols int, source string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		StartedAt: started,
		Rows:      rows,
		Cols:      cols,
		Source:    source,
	}
	_, err := s.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_ns, grid_rows, grid_cols, source) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, started.UnixNano(), rows, cols, source)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	diagf("session %s started (%dx%d, source=%s)", sess.ID, rows, cols, source)
	return sess, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, id string, ended time.Time) error {
	res, err := s.ExecContext(ctx, `UPDATE sessions SET ended_ns = ? WHERE session_id = ?`, ended.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// GetSession loads one session.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.QueryRowContext(ctx,
		`SELECT session_id, started_ns, ended_ns, grid_rows, grid_cols, source FROM sessions WHERE session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// ListSessions returns sessions newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.QueryContext(ctx,
		`SELECT session_id, started_ns, ended_ns, grid_rows, grid_cols, source
		   FROM sessions ORDER BY started_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	var (
		sess    Session
		started int64
		ended   sql.NullInt64
	)
	if err := r.Scan(&sess.ID, &started, &ended, &sess.Rows, &sess.Cols, &sess.Source); err != nil {
		return nil, err
	}
	sess.StartedAt = time.Unix(0, started)
	if ended.Valid {
		t := time.Unix(0, ended.Int64)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// Frames returns a session's landmark frames in sequence order.
func (s *Store) Frames(ctx context.Context, id string) ([]FrameRecord, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT seq, captured_ns, hand_present, payload FROM landmark_frames WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var (
			f        FrameRecord
			captured int64
		)
		if err := rows.Scan(&f.Seq, &captured, &f.HandPresent, &f.Payload); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.CapturedAt = time.Unix(0, captured)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Generations returns a session's generation populations in order.
func (s *Store) Generations(ctx context.Context, id string) ([]GenerationRecord, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT generation, recorded_ns, population FROM generations WHERE session_id = ? ORDER BY generation`, id)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var (
			g        GenerationRecord
			recorded int64
		)
		if err := rows.Scan(&g.Generation, &recorded, &g.Population); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		g.RecordedAt = time.Unix(0, recorded)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Actions returns a session's actions in time order.
func (s *Store) Actions(ctx context.Context, id string) ([]ActionRecord, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT recorded_ns, action FROM actions WHERE session_id = ? ORDER BY recorded_ns, action_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var (
			a        ActionRecord
			recorded int64
		)
		if err := rows.Scan(&recorded, &a.Action); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.RecordedAt = time.Unix(0, recorded)
		out = append(out, a)
	}
	return out, rows.Err()
}
