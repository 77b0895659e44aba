package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ZiRule values accepted by the zi_rule column.
const (
	ZiRuleKeep    = "keep"
	ZiRuleAdvance = "advance"
)

// ReferenceChart is a civil moment together with the pillars a trusted
// source gives for it.
type ReferenceChart struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	SolarDate string    `json:"solar_date"` // YYYY-MM-DD
	SolarTime string    `json:"solar_time"` // HH:MM
	ZiRule    string    `json:"zi_rule"`    // keep or advance
	Expected  string    `json:"expected"`   // "辛未年 丙申月 庚辰日 癸未时"
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidationRun summarizes one pass over the reference charts.
type ValidationRun struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Total     int       `json:"total"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Errored   int       `json:"errored"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidationResult is the outcome for one chart within a run.
type ValidationResult struct {
	ID          int64    `json:"id"`
	RunID       int64    `json:"run_id"`
	ReferenceID *int64   `json:"reference_id,omitempty"`
	Label       string   `json:"label"`
	Expected    string   `json:"expected"`
	Actual      string   `json:"actual"`
	Match       bool     `json:"match"`
	Mismatches  []string `json:"mismatches"`
	Degraded    bool     `json:"degraded,omitempty"`
	Error       *string  `json:"error,omitempty"`
}

// RunSummary is a run with all its results.
type RunSummary struct {
	Run     ValidationRun      `json:"run"`
	Results []ValidationResult `json:"results"`
}

// Tally recomputes the run counters from the results.
func (s *RunSummary) Tally() {
	s.Run.Total, s.Run.Passed, s.Run.Failed, s.Run.Errored = len(s.Results), 0, 0, 0
	for _, r := range s.Results {
		switch {
		case r.Error != nil:
			s.Run.Errored++
		case r.Match:
			s.Run.Passed++
		default:
			s.Run.Failed++
		}
	}
}

// -----------------------------------------------------------------
// Helpers for nullable and JSON columns
// -----------------------------------------------------------------

// MarshalMismatches converts a pillar list to JSON for storage.
func MarshalMismatches(pillars []string) (string, error) {
	if pillars == nil {
		pillars = []string{}
	}
	data, err := json.Marshal(pillars)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalMismatches converts stored JSON back to a pillar list.
func UnmarshalMismatches(data string) ([]string, error) {
	pillars := []string{}
	if data == "" {
		return pillars, nil
	}
	if err := json.Unmarshal([]byte(data), &pillars); err != nil {
		return nil, err
	}
	return pillars, nil
}

// NullString converts sql.NullString to *string.
func NullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// StringToNull converts *string to sql.NullString.
func StringToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
