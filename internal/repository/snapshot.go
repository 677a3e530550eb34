package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/jackc/pgx/v5"
)

const snapshotColumns = `id, document, created_at, updated_at`

// Insert a new snapshot; existing rows are never touched
func (r *Repository) InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	doc, err := json.Marshal(snap.Content)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO site_content (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4)`,
		snap.ID, doc, snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Get the snapshot with the greatest updated_at
func (r *Repository) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+`
		FROM site_content
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`,
	)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoContent
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

// List every snapshot, newest first
func (r *Repository) ListSnapshots(ctx context.Context) ([]domain.Snapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+snapshotColumns+`
		FROM site_content
		ORDER BY updated_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var items []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		items = append(items, *snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over snapshots: %w", err)
	}
	return items, nil
}

func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		doc  []byte
	)
	if err := row.Scan(&snap.ID, &doc, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &snap.Content); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	snap.Content = snap.Content.Normalize()
	snap.CreatedAt = snap.CreatedAt.UTC()
	snap.UpdatedAt = snap.UpdatedAt.UTC()
	return &snap, nil
}
