// Package poselog persists fusion sessions to sqlite so drives can be
// inspected and replayed after the fact. A session records the raw
// odometry and vision observations exactly as they arrived, plus the
// estimate the engine published each tick.
package poselog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/fusion"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/geom"
)

type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the pose database at path and applies
// any pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	store := &Store{db}
	if err := store.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Session identifies one recorded drive.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Notes     string    `json:"notes"`
}

// OdometryRecord is one stored odometry observation.
type OdometryRecord struct {
	Timestamp  float64    `json:"ts_seconds"`
	Twist      geom.Twist `json:"twist"`
	HeadingRad float64    `json:"heading_rad"`
}

// Observation converts the record back to its live form.
func (r OdometryRecord) Observation() fusion.OdometryObservation {
	return fusion.OdometryObservation{
		Twist:      r.Twist,
		HeadingRad: r.HeadingRad,
		Timestamp:  r.Timestamp,
	}
}

// VisionRecord is one stored vision observation. ReceivedTimestamp is
// when the observation reached the engine; Timestamp is the capture
// time, which lags it by the pipeline latency.
type VisionRecord struct {
	Timestamp         float64    `json:"ts_seconds"`
	ReceivedTimestamp float64    `json:"received_ts_seconds"`
	Pose              geom.Pose  `json:"pose"`
	StdDevs           [3]float64 `json:"std_devs"`
}

func (r VisionRecord) Observation() fusion.VisionObservation {
	return fusion.VisionObservation{
		Pose:      r.Pose,
		Timestamp: r.Timestamp,
		StdDevs:   r.StdDevs,
	}
}

// EstimateRecord is the estimate the engine published at one tick.
type EstimateRecord struct {
	Timestamp float64   `json:"ts_seconds"`
	Pose      geom.Pose `json:"pose"`
}

// CreateSession registers a new session and returns it.
func (s *Store) CreateSession(notes string) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Notes:     notes,
	}

	_, err := s.Exec(
		"INSERT INTO pose_sessions (id, started_at_unix_nanos, notes) VALUES (?, ?, ?)",
		session.ID, session.StartedAt.UnixNano(), session.Notes,
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.Query("SELECT id, started_at_unix_nanos, notes FROM pose_sessions ORDER BY started_at_unix_nanos DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var nanos int64
		if err := rows.Scan(&session.ID, &nanos, &session.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		session.StartedAt = time.Unix(0, nanos)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// GetSession looks up a single session by ID.
func (s *Store) GetSession(id string) (Session, error) {
	var session Session
	var nanos int64
	err := s.QueryRow(
		"SELECT id, started_at_unix_nanos, notes FROM pose_sessions WHERE id = ?", id,
	).Scan(&session.ID, &nanos, &session.Notes)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	session.StartedAt = time.Unix(0, nanos)
	return session, nil
}

// InsertOdometry stores a batch of odometry observations in one
// transaction.
func (s *Store) InsertOdometry(sessionID string, records []OdometryRecord) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO pose_odometry (session_id, ts_seconds, dx, dy, dtheta, heading_rad) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(sessionID, r.Timestamp, r.Twist.Dx, r.Twist.Dy, r.Twist.Dtheta, r.HeadingRad); err != nil {
			return fmt.Errorf("failed to insert odometry record: %w", err)
		}
	}

	return tx.Commit()
}

// InsertVision stores a batch of vision observations in one transaction.
func (s *Store) InsertVision(sessionID string, records []VisionRecord) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO pose_vision (session_id, ts_seconds, received_ts_seconds, x, y, heading_rad, std_x, std_y, std_heading) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(
			sessionID, r.Timestamp, r.ReceivedTimestamp,
			r.Pose.X, r.Pose.Y, r.Pose.Heading,
			r.StdDevs[0], r.StdDevs[1], r.StdDevs[2],
		); err != nil {
			return fmt.Errorf("failed to insert vision record: %w", err)
		}
	}

	return tx.Commit()
}

// InsertEstimates stores a batch of published estimates in one
// transaction.
func (s *Store) InsertEstimates(sessionID string, records []EstimateRecord) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO pose_estimates (session_id, ts_seconds, x, y, heading_rad) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(sessionID, r.Timestamp, r.Pose.X, r.Pose.Y, r.Pose.Heading); err != nil {
			return fmt.Errorf("failed to insert estimate record: %w", err)
		}
	}

	return tx.Commit()
}

// GetOdometry returns a session's odometry records in timestamp order.
func (s *Store) GetOdometry(sessionID string) ([]OdometryRecord, error) {
	rows, err := s.Query(
		"SELECT ts_seconds, dx, dy, dtheta, heading_rad FROM pose_odometry WHERE session_id = ? ORDER BY ts_seconds",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query odometry: %w", err)
	}
	defer rows.Close()

	var records []OdometryRecord
	for rows.Next() {
		var r OdometryRecord
		if err := rows.Scan(&r.Timestamp, &r.Twist.Dx, &r.Twist.Dy, &r.Twist.Dtheta, &r.HeadingRad); err != nil {
			return nil, fmt.Errorf("failed to scan odometry row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// GetVision returns a session's vision records ordered by arrival time,
// the order the engine saw them live.
func (s *Store) GetVision(sessionID string) ([]VisionRecord, error) {
	rows, err := s.Query(
		"SELECT ts_seconds, received_ts_seconds, x, y, heading_rad, std_x, std_y, std_heading FROM pose_vision WHERE session_id = ? ORDER BY received_ts_seconds",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query vision: %w", err)
	}
	defer rows.Close()

	var records []VisionRecord
	for rows.Next() {
		var r VisionRecord
		if err := rows.Scan(
			&r.Timestamp, &r.ReceivedTimestamp,
			&r.Pose.X, &r.Pose.Y, &r.Pose.Heading,
			&r.StdDevs[0], &r.StdDevs[1], &r.StdDevs[2],
		); err != nil {
			return nil, fmt.Errorf("failed to scan vision row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// GetEstimates returns a session's recorded estimates in timestamp
// order.
func (s *Store) GetEstimates(sessionID string) ([]EstimateRecord, error) {
	rows, err := s.Query(
		"SELECT ts_seconds, x, y, heading_rad FROM pose_estimates WHERE session_id = ? ORDER BY ts_seconds",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var records []EstimateRecord
	for rows.Next() {
		var r EstimateRecord
		if err := rows.Scan(&r.Timestamp, &r.Pose.X, &r.Pose.Y, &r.Pose.Heading); err != nil {
			return nil, fmt.Errorf("failed to scan estimate row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
