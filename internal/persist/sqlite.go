package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	gpgll_time REAL,
	latitude REAL,
	longitude REAL,
	heading_true REAL,
	heading_mag REAL,
	boat_speed_nm REAL,
	wind_speed_true_nm REAL,
	wind_dir_ref TEXT,
	wind_speed_apparent_nm REAL
);
CREATE TABLE IF NOT EXISTS wind_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	wind_speed REAL,
	wind_angle REAL
);
CREATE TABLE IF NOT EXISTS boat_speed_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	boat_speed REAL
);
CREATE TABLE IF NOT EXISTS gps_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	latitude REAL,
	longitude REAL
);
CREATE INDEX IF NOT EXISTS idx_tracks_timestamp ON tracks(timestamp);
`

// SQLiteStore persists rows to a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) InsertTrack(ctx context.Context, r TrackRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (timestamp, gpgll_time, latitude, longitude, heading_true, heading_mag,
			boat_speed_nm, wind_speed_true_nm, wind_dir_ref, wind_speed_apparent_nm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp, r.PositionTime, r.Latitude, r.Longitude, r.HeadingTrue, r.HeadingMag,
		r.BoatSpeedNm, r.WindSpeedTrueNm, r.WindDirRef, r.WindSpeedApparentNm)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertWind(ctx context.Context, r WindRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wind_log (timestamp, wind_speed, wind_angle) VALUES (?, ?, ?)`,
		r.Timestamp, r.WindSpeed, r.WindAngle)
	if err != nil {
		return fmt.Errorf("insert wind: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertBoatSpeed(ctx context.Context, r SpeedRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boat_speed_log (timestamp, boat_speed) VALUES (?, ?)`,
		r.Timestamp, r.BoatSpeed)
	if err != nil {
		return fmt.Errorf("insert boat speed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertPosition(ctx context.Context, r PositionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gps_log (timestamp, latitude, longitude) VALUES (?, ?, ?)`,
		r.Timestamp, r.Latitude, r.Longitude)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Tracks returns the most recent limit track rows, oldest first.
func (s *SQLiteStore) Tracks(ctx context.Context, limit int) ([]TrackRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, gpgll_time, latitude, longitude, heading_true, heading_mag,
			boat_speed_nm, wind_speed_true_nm, wind_dir_ref, wind_speed_apparent_nm
		FROM (SELECT * FROM tracks ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackRecord
	for rows.Next() {
		var r TrackRecord
		if err := rows.Scan(&r.Timestamp, &r.PositionTime, &r.Latitude, &r.Longitude, &r.HeadingTrue,
			&r.HeadingMag, &r.BoatSpeedNm, &r.WindSpeedTrueNm, &r.WindDirRef, &r.WindSpeedApparentNm); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of rows in one of the store's tables.
func (s *SQLiteStore) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "tracks", "wind_log", "boat_speed_log", "gps_log":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
