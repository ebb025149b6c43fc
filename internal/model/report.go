package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// HazardIgnore marks a report as excluded from scoring, consensus and the dashboard
const HazardIgnore = "ignore"

// Report is a single crowd-sourced hazard report
type Report struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	HazardType string    `json:"hazard_type"` // Category label or HazardIgnore
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Score      float64   `json:"score"` // Classifier confidence while provisional, aggregated score once final
	Phase      Phase     `json:"phase"`
	Timestamp  time.Time `json:"timestamp"` // Creation instant (UTC), never mutated
}

// Ignored reports whether the report carries the ignore sentinel
func (r Report) Ignored() bool {
	return r.HazardType == HazardIgnore
}

// Phase tracks where a report is in its scoring lifecycle
type Phase string

const (
	PhaseProvisional Phase = "provisional" // Score holds raw classifier confidence
	PhaseFinal       Phase = "final"       // Score holds the aggregated credibility score
)

// Submission is an incoming report before classification
type Submission struct {
	UserID string  `json:"user_id"`
	Text   string  `json:"text"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// ErrInvalidSubmission is wrapped by every Validate failure
var ErrInvalidSubmission = errors.New("invalid submission")

// Validate checks required fields. With strictCoordinates it also rejects
// non-finite or out-of-range coordinates.
func (s Submission) Validate(strictCoordinates bool) error {
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidSubmission)
	}
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidSubmission)
	}
	if !strictCoordinates {
		return nil
	}
	if math.IsNaN(s.Lat) || math.IsInf(s.Lat, 0) || s.Lat < -90 || s.Lat > 90 {
		return fmt.Errorf("%w: lat %v out of range", ErrInvalidSubmission, s.Lat)
	}
	if math.IsNaN(s.Lon) || math.IsInf(s.Lon, 0) || s.Lon < -180 || s.Lon > 180 {
		return fmt.Errorf("%w: lon %v out of range", ErrInvalidSubmission, s.Lon)
	}
	return nil
}

// SubmitResult is returned to the reporter after scoring
type SubmitResult struct {
	ID         int64          `json:"id"`
	HazardType string         `json:"hazard_type"`
	Score      float64        `json:"score"`
	Breakdown  map[string]any `json:"breakdown"`
	Phase      Phase          `json:"phase"`
	Signals    []Signal       `json:"signals,omitempty"`
}

// Signal is a human-readable explanation of one scoring component
type Signal struct {
	Component   string         `json:"component"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// DashboardEntry is a surfaced report as shown on the public dashboard
type DashboardEntry struct {
	ID         int64   `json:"id"`
	HazardType string  `json:"hazard_type"`
	Lat        *float64 `json:"lat"` // nil when the stored value is not finite
	Lon        *float64 `json:"lon"`
	Score      float64  `json:"score"`
	Timestamp  string   `json:"timestamp"` // ISO-8601
}

// NewDashboardEntry converts a stored report into its dashboard form
func NewDashboardEntry(r Report) DashboardEntry {
	return DashboardEntry{
		ID:         r.ID,
		HazardType: r.HazardType,
		Lat:        finite(r.Lat),
		Lon:        finite(r.Lon),
		Score:      r.Score,
		Timestamp:  r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
