package storage

import (
	"context"
	"fmt"
)

// Migrate creates the schema if it does not exist. dim is the descriptor
// dimension and must match the embedding model.
func (s *PostgresStore) Migrate(ctx context.Context, dim int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			nama TEXT NOT NULL,
			nim TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS face_descriptors (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			descriptor vector(%d) NOT NULL,
			sharpness DOUBLE PRECISION NOT NULL DEFAULT 0,
			source_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_face_descriptors_user ON face_descriptors(user_id)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
			confidence_score DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			mood TEXT NOT NULL DEFAULT '',
			mood_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			mood_emoji TEXT NOT NULL DEFAULT '',
			snapshot_key TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_user_time ON attendance(user_id, timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
