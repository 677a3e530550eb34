package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/actuallystonmai/site-content/internal/assembler"
	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/actuallystonmai/site-content/internal/storage"
	"github.com/actuallystonmai/site-content/internal/upload"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store persists snapshots. Inserts never modify existing snapshots.
type Store interface {
	InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	Ping(ctx context.Context) error
}

// BlobStore holds uploaded images under generated names.
type BlobStore interface {
	Upload(ctx context.Context, name string, reader io.Reader) error
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

type SnapshotCache interface {
	GetLatest(ctx context.Context) (*domain.Snapshot, bool, error)
	SetLatest(ctx context.Context, snap *domain.Snapshot) error
	Invalidate(ctx context.Context) error
	Ping(ctx context.Context) error
}

type Service struct {
	store Store
	blobs BlobStore
	cache SnapshotCache
	now   func() time.Time
}

// NewService wires the service; cache may be nil to disable caching.
func NewService(store Store, blobs BlobStore, cache SnapshotCache) *Service {
	return &Service{
		store: store,
		blobs: blobs,
		cache: cache,
		now:   time.Now,
	}
}

// Latest returns the current snapshot or domain.ErrNoContent.
func (s *Service) Latest(ctx context.Context) (*domain.Snapshot, error) {
	// Check Cache
	if s.cache != nil {
		cached, found, err := s.cache.GetLatest(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("service: cache get failed")
		}
		if found {
			return cached, nil
		}
	}

	snap, err := s.store.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoContent) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch latest snapshot: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, snap); err != nil {
			log.Warn().Err(err).Msg("service: cache set failed")
		}
	}
	return snap, nil
}

// Replace stores the images, assembles a new snapshot from in and inserts
// it. If anything fails after the first image is written, every image
// written by this call is removed again before the error is returned.
func (s *Service) Replace(ctx context.Context, in assembler.Input, images []upload.Image) (*domain.Snapshot, error) {
	written := make([]string, 0, len(images))
	paths := make([]string, 0, len(images))

	for _, img := range images {
		name := storage.ObjectName(img.Extension(), s.now())
		if err := s.saveImage(ctx, name, img); err != nil {
			s.removeImages(ctx, written)
			return nil, fmt.Errorf("store image %q: %w", img.Filename(), err)
		}
		written = append(written, name)
		paths = append(paths, s.blobs.URL(name))
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.removeImages(ctx, written)
		return nil, fmt.Errorf("generate snapshot id: %w", err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	snap := &domain.Snapshot{
		ID:        id,
		Content:   assembler.Assemble(in, paths),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.InsertSnapshot(ctx, snap); err != nil {
		s.removeImages(ctx, written)
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Str("snapshot_id", id.String()).Msg("service: cache invalidation failed")
		}
	}

	log.Info().
		Str("snapshot_id", id.String()).
		Int("images", len(written)).
		Int("hero_slides", len(snap.HeroSlides)).
		Msg("service: content replaced")
	return snap, nil
}

func (s *Service) saveImage(ctx context.Context, name string, img upload.Image) error {
	file, err := img.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	return s.blobs.Upload(ctx, name, file)
}

// removeImages is the compensating action for a failed replace. Failures
// are logged only.
func (s *Service) removeImages(ctx context.Context, names []string) {
	ctx = context.WithoutCancel(ctx)
	for _, name := range names {
		if err := s.blobs.Delete(ctx, name); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("service: failed to remove uploaded file")
			continue
		}
		log.Debug().Str("file", name).Msg("service: removed uploaded file")
	}
}

type Health struct {
	Database string
	Cache    string
}

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

// Health probes store and cache connectivity.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Database: StatusConnected, Cache: StatusDisabled}

	if err := s.store.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("service: database ping failed")
		h.Database = StatusDisconnected
	}

	if s.cache != nil {
		h.Cache = StatusConnected
		if err := s.cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("service: cache ping failed")
			h.Cache = StatusDisconnected
		}
	}
	return h
}
