package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/hazardscore/internal/model"
)

// MemoryRepository keeps reports in a map guarded by a RWMutex
type MemoryRepository struct {
	mu      sync.RWMutex
	reports map[int64]model.Report
	nextID  int64
	now     func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		reports: make(map[int64]model.Report),
		now:     time.Now,
	}
}

// Create assigns the next ID and, when unset, the creation timestamp
func (m *MemoryRepository) Create(ctx context.Context, r *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	r.ID = m.nextID
	if r.Timestamp.IsZero() {
		r.Timestamp = m.now().UTC()
	}
	if r.Phase == "" {
		r.Phase = model.PhaseProvisional
	}
	m.reports[r.ID] = *r
	return nil
}

// Get returns a copy of the stored report
func (m *MemoryRepository) Get(ctx context.Context, id int64) (*model.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

// ByHazardType returns matching reports ordered by ID
func (m *MemoryRepository) ByHazardType(ctx context.Context, hazardType string) ([]model.Report, error) {
	return m.filter(func(r model.Report) bool { return r.HazardType == hazardType }), nil
}

// CountByUser counts every report by userID
func (m *MemoryRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.reports {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Finalize sets the final score
func (m *MemoryRepository) Finalize(ctx context.Context, id int64, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Score = score
	r.Phase = model.PhaseFinal
	m.reports[id] = r
	return nil
}

// Dashboard returns surfaced reports ordered by ID
func (m *MemoryRepository) Dashboard(ctx context.Context, threshold float64) ([]model.Report, error) {
	return m.filter(func(r model.Report) bool {
		return r.Score >= threshold && !r.Ignored()
	}), nil
}

// Close is a no-op
func (m *MemoryRepository) Close() error {
	return nil
}

func (m *MemoryRepository) filter(keep func(model.Report) bool) []model.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Report, 0)
	for _, r := range m.reports {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
