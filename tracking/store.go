package tracking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Store persists runs.
type Store interface {
	// CreateRun stores r, assigning ID and CreatedAt when they are zero.
	CreateRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	// ListRuns returns the runs whose name contains nameFilter, newest first.
	ListRuns(ctx context.Context, nameFilter string) ([]*Run, error)
	// LogMetrics merges metrics into the run's metrics.
	LogMetrics(ctx context.Context, id uuid.UUID, metrics Metrics) error
}

func prepare(r *Run) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
	seq  map[uuid.UUID]int
	next int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[uuid.UUID]*Run),
		seq:  make(map[uuid.UUID]int),
	}
}

// CreateRun implements Store.
func (s *MemoryStore) CreateRun(ctx context.Context, r *Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[r.ID]; exists {
		return errors.Newf("tracking: run %s already exists", r.ID)
	}
	s.runs[r.ID] = r.clone()
	s.seq[r.ID] = s.next
	s.next++
	return nil
}

// GetRun implements Store.
func (s *MemoryStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, errors.Wrapf(ErrRunNotFound, "run %s", id)
	}
	return r.clone(), nil
}

// ListRuns implements Store.
func (s *MemoryStore) ListRuns(ctx context.Context, nameFilter string) ([]*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := strings.ToLower(nameFilter)
	var out []*Run
	for _, r := range s.runs {
		if strings.Contains(strings.ToLower(r.Name), filter) {
			out = append(out, r.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

// LogMetrics implements Store.
func (s *MemoryStore) LogMetrics(ctx context.Context, id uuid.UUID, metrics Metrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return errors.Wrapf(ErrRunNotFound, "run %s", id)
	}
	if r.Metrics == nil {
		r.Metrics = make(Metrics, len(metrics))
	}
	for k, v := range metrics {
		r.Metrics[k] = v
	}
	return nil
}
