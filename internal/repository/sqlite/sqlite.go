package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bactopo/internal/codec"
	"bactopo/internal/domain"
	"bactopo/internal/repository"
)

// Store implements repository.Store using SQLite
type Store struct {
	db    *sql.DB
	codec *codec.JSONCodec
}

// New creates a new SQLite snapshot store
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, codec: codec.NewJSONCodec()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		taken_at DATETIME NOT NULL,
		node_count INTEGER NOT NULL,
		triples JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save persists a graph as a new snapshot
func (s *Store) Save(ctx context.Context, g *domain.Graph, takenAt time.Time) (*repository.Snapshot, error) {
	triples := g.Triples()

	var buf bytes.Buffer
	if err := s.codec.Export(triples, &buf); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	snap := &repository.Snapshot{
		ID:      uuid.NewString(),
		TakenAt: takenAt.UTC(),
		Triples: triples,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, taken_at, node_count, triples)
		VALUES (?, ?, ?, ?)
	`, snap.ID, snap.TakenAt, g.Len(), buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return snap, nil
}

// Get loads one snapshot by ID
func (s *Store) Get(ctx context.Context, id string) (*repository.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, taken_at, triples FROM snapshots WHERE id = ?
	`, id)
	return s.scanSnapshot(row)
}

// Latest loads the most recent snapshot
func (s *Store) Latest(ctx context.Context) (*repository.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, taken_at, triples FROM snapshots
		ORDER BY taken_at DESC, id DESC LIMIT 1
	`)
	return s.scanSnapshot(row)
}

func (s *Store) scanSnapshot(row *sql.Row) (*repository.Snapshot, error) {
	var (
		id      string
		takenAt time.Time
		data    []byte
	)
	if err := row.Scan(&id, &takenAt, &data); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	triples, err := s.codec.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}

	return &repository.Snapshot{ID: id, TakenAt: takenAt.UTC(), Triples: triples}, nil
}

// List returns metadata for all snapshots, newest first
func (s *Store) List(ctx context.Context) ([]repository.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, taken_at, node_count FROM snapshots
		ORDER BY taken_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var infos []repository.Info
	for rows.Next() {
		var info repository.Info
		if err := rows.Scan(&info.ID, &info.TakenAt, &info.NodeCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		info.TakenAt = info.TakenAt.UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return infos, nil
}

// Prune deletes all but the keep newest snapshots
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned snapshots: %w", err)
	}
	return int(removed), nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}
