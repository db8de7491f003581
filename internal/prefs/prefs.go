// Package prefs persists the small pieces of local state the dashboard
// reads at startup: the refresh schedule, the alert preference, and the
// set of games whose outcome was already recorded.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	refreshScheduleKey = "refresh_schedule"
	alertPrefsKey      = "alert_prefs"
	recordedGamesKey   = "recorded_games"
)

// RefreshSchedule mirrors the persisted auto-refresh flags.
type RefreshSchedule struct {
	Enabled    bool `json:"enabled"`
	IntervalMs int  `json:"intervalMs"`
}

// AlertPrefs mirrors the persisted alerting preference.
type AlertPrefs struct {
	Enabled   bool    `json:"enabled"`
	Threshold float64 `json:"threshold"`
}

// Store reads and writes JSON blobs under fixed keys in a data directory.
// Writes happen synchronously on every change.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("couldn't create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// RefreshSchedule returns the persisted schedule, or the given default when
// none was saved yet.
func (s *Store) RefreshSchedule(def RefreshSchedule) (RefreshSchedule, error) {
	out := def
	err := s.read(refreshScheduleKey, &out)
	if errors.Is(err, os.ErrNotExist) {
		return def, nil
	}
	return out, err
}

func (s *Store) SaveRefreshSchedule(v RefreshSchedule) error {
	return s.write(refreshScheduleKey, v)
}

func (s *Store) AlertPrefs(def AlertPrefs) (AlertPrefs, error) {
	out := def
	err := s.read(alertPrefsKey, &out)
	if errors.Is(err, os.ErrNotExist) {
		return def, nil
	}
	return out, err
}

func (s *Store) SaveAlertPrefs(v AlertPrefs) error {
	return s.write(alertPrefsKey, v)
}

// RecordedGames returns the ids of games whose outcome was already posted.
func (s *Store) RecordedGames() ([]string, error) {
	var out []string
	err := s.read(recordedGamesKey, &out)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return out, err
}

func (s *Store) SaveRecordedGames(ids []string) error {
	return s.write(recordedGamesKey, ids)
}

func (s *Store) read(key string, v any) error {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("couldn't parse %s: %w", key, err)
	}
	return nil
}

func (s *Store) write(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("couldn't encode %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), raw, 0o644); err != nil {
		return fmt.Errorf("couldn't write %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
