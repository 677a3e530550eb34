package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/actuallystonmai/site-content/internal/domain"
)

// Store keeps snapshots in process memory. It backs DATABASE_URL=memory
// and tests.
type Store struct {
	mu        sync.RWMutex
	snapshots []domain.Snapshot
}

func New() *Store {
	return &Store{}
}

func (s *Store) InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, copySnapshot(*snap))
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Snapshot
	for i := range s.snapshots {
		if latest == nil || s.snapshots[i].Newer(latest) {
			latest = &s.snapshots[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNoContent
	}

	out := copySnapshot(*latest)
	return &out, nil
}

// ListSnapshots returns every snapshot, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, copySnapshot(snap))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Newer(&out[j])
	})
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func copySnapshot(snap domain.Snapshot) domain.Snapshot {
	snap.Content = snap.Content.Clone().Normalize()
	return snap
}
