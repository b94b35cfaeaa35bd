package store

import (
	"context"
	"sort"
	"sync"

	"github.com/TimurManjosov/horizons/internal/probe"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// Reports live only as long as the process; it suits tests and the API server demo mode.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]probe.Report // id -> Report
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]probe.Report),
	}
}

// Save stores a report, replacing any report with the same ID.
func (m *MemoryStore) Save(ctx context.Context, report probe.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports[report.ID] = report
	return nil
}

// Get retrieves a report by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*probe.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report, exists := m.reports[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &report, nil
}

// Latest retrieves the most recently started report.
func (m *MemoryStore) Latest(ctx context.Context) (*probe.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *probe.Report
	for id := range m.reports {
		r := m.reports[id]
		if latest == nil || newer(r, *latest) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// List returns summaries of all reports, newest first.
func (m *MemoryStore) List(ctx context.Context) ([]probe.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reports := make([]probe.Report, 0, len(m.reports))
	for _, r := range m.reports {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return newer(reports[i], reports[j]) })

	summaries := make([]probe.Summary, 0, len(reports))
	for i := range reports {
		summaries = append(summaries, reports[i].Summarize())
	}
	return summaries, nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}

// newer orders by start time, breaking ties by ID so listings are stable.
func newer(a, b probe.Report) bool {
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.After(b.StartedAt)
	}
	return a.ID > b.ID
}
