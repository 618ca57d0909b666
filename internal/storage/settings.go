package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/srsdb/internal/domain"
)

// DefaultIntervals is the interval table used until one is set explicitly.
// Index i is the wait after a card reaches review level i.
var DefaultIntervals = []time.Duration{
	10 * time.Minute,
	4 * time.Hour,
	8 * time.Hour,
	24 * time.Hour,
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
	28 * 24 * time.Hour,
	112 * 24 * time.Hour,
}

type settingsInfo struct {
	Version string `json:"version"`
}

// seedSettings creates the singleton settings row of a new database.
func (db *DB) seedSettings(ctx context.Context) error {
	info, err := json.Marshal(settingsInfo{Version: latestVersion()})
	if err != nil {
		return err
	}
	var srs any
	if len(db.seed) > 0 {
		raw, err := encodeIntervals(db.seed)
		if err != nil {
			return err
		}
		srs = raw
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO settings (id, srs, info) VALUES (1, ?, ?) ON CONFLICT(id) DO NOTHING`,
		srs, string(info))
	if err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}

// Settings reads the settings singleton.
func (db *DB) Settings(ctx context.Context) (*domain.Settings, error) {
	return readSettings(ctx, db.conn)
}

func readSettings(ctx context.Context, q querier) (*domain.Settings, error) {
	var srs sql.NullString
	var rawInfo string
	err := q.QueryRowContext(ctx, `SELECT srs, info FROM settings WHERE id = 1`).Scan(&srs, &rawInfo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settings: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := &domain.Settings{Intervals: append([]time.Duration(nil), DefaultIntervals...)}
	if srs.Valid && srs.String != "" {
		intervals, err := decodeIntervals(srs.String)
		if err != nil {
			return nil, err
		}
		if len(intervals) > 0 {
			s.Intervals = intervals
		}
	}

	var info settingsInfo
	if err := json.Unmarshal([]byte(rawInfo), &info); err != nil {
		return nil, fmt.Errorf("failed to decode settings info: %w", err)
	}
	s.Version = info.Version
	return s, nil
}

// SetIntervals replaces the SRS interval table.
func (db *DB) SetIntervals(ctx context.Context, intervals []time.Duration) error {
	if len(intervals) == 0 {
		return fmt.Errorf("interval table must not be empty")
	}
	for i, iv := range intervals {
		if iv <= 0 {
			return fmt.Errorf("interval %d must be positive, got %s", i, iv)
		}
	}
	raw, err := encodeIntervals(intervals)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, `UPDATE settings SET srs = ? WHERE id = 1`, raw); err != nil {
		return fmt.Errorf("failed to update intervals: %w", err)
	}
	return nil
}

func encodeIntervals(intervals []time.Duration) (string, error) {
	secs := make([]float64, len(intervals))
	for i, iv := range intervals {
		secs[i] = iv.Seconds()
	}
	raw, err := json.Marshal(secs)
	if err != nil {
		return "", fmt.Errorf("failed to encode intervals: %w", err)
	}
	return string(raw), nil
}

func decodeIntervals(raw string) ([]time.Duration, error) {
	var secs []float64
	if err := json.Unmarshal([]byte(raw), &secs); err != nil {
		return nil, fmt.Errorf("failed to decode intervals: %w", err)
	}
	intervals := make([]time.Duration, len(secs))
	for i, s := range secs {
		intervals[i] = time.Duration(s * float64(time.Second))
	}
	return intervals, nil
}
