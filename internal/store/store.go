package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/hazardscore/internal/model"
)

// ErrNotFound is returned when a report does not exist
var ErrNotFound = errors.New("report not found")

// Repository persists reports and answers the reads the scorer needs.
// Reads return committed data; they are not linearizable with concurrent writes.
type Repository interface {
	// Create stores a provisional report, assigning its ID and, when unset, its Timestamp
	Create(ctx context.Context, r *model.Report) error
	// Get returns a single report
	Get(ctx context.Context, id int64) (*model.Report, error)
	// ByHazardType returns every report with the given category
	ByHazardType(ctx context.Context, hazardType string) ([]model.Report, error)
	// CountByUser returns the total number of reports filed by a user
	CountByUser(ctx context.Context, userID string) (int, error)
	// Finalize writes the aggregated score and marks the report final
	Finalize(ctx context.Context, id int64, score float64) error
	// Dashboard returns non-ignored reports with score >= threshold, ordered by ID
	Dashboard(ctx context.Context, threshold float64) ([]model.Report, error)
	// Close releases underlying resources
	Close() error
}

// Open creates the repository selected by cfg
func Open(cfg model.StoreConfig) (Repository, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3", "":
		return NewSQLiteRepository(cfg.DSN)
	case "memory":
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: sqlite, memory)", cfg.Driver)
	}
}
