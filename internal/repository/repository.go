package repository

import (
	"context"
	"errors"
	"time"

	"bactopo/internal/domain"
)

// ErrNotFound is returned when no snapshot matches the requested ID, or
// when Latest is called on an empty store.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one stored scan result: the canonical triple list plus
// identifying metadata.
type Snapshot struct {
	ID      string
	TakenAt time.Time
	Triples []domain.Triple
}

// Graph rebuilds the topology graph from the stored triples.
func (s *Snapshot) Graph() (*domain.Graph, error) {
	return domain.FromTriples(s.Triples)
}

// Info is snapshot metadata without the triple payload, for listings.
type Info struct {
	ID        string
	TakenAt   time.Time
	NodeCount int
}

// Store defines the interface for snapshot persistence
type Store interface {
	// Save persists a graph and returns the stored snapshot.
	Save(ctx context.Context, g *domain.Graph, takenAt time.Time) (*Snapshot, error)

	// Get loads one snapshot by ID.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// Latest loads the most recent snapshot.
	Latest(ctx context.Context) (*Snapshot, error)

	// List returns metadata for all snapshots, newest first.
	List(ctx context.Context) ([]Info, error)

	// Prune deletes all but the keep newest snapshots and reports how
	// many were removed.
	Prune(ctx context.Context, keep int) (int, error)

	// Close releases resources
	Close() error
}
