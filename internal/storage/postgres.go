package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) NIMExists(ctx context.Context, nim string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE nim = $1`, nim).Scan(&count)
	if err != nil {
		return false, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	return count > 0, nil
}

// CreateUserWithDescriptors inserts a user and all enrollment descriptors in
// one transaction, so a mid-batch failure never leaves an identity with zero
// descriptors behind.
func (s *PostgresStore) CreateUserWithDescriptors(ctx context.Context, nama, nim string, descriptors []models.FaceDescriptor) (*models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	defer tx.Rollback(ctx)

	u := &models.User{ID: uuid.New(), Nama: nama, NIM: nim}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, nama, nim) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, u.Nama, u.NIM,
	).Scan(&u.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to create user", err)
	}

	for i := range descriptors {
		d := &descriptors[i]
		d.ID = uuid.New()
		d.UserID = u.ID
		_, err := tx.Exec(ctx,
			`INSERT INTO face_descriptors (id, user_id, descriptor, sharpness, source_key)
			 VALUES ($1, $2, $3, $4, $5)`,
			d.ID, d.UserID, pgvector.NewVector(d.Vector), d.Sharpness, d.SourceKey)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "failed to save face descriptor", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to commit enrollment", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, nama, nim, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Nama, &u.NIM, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, nama, nim, created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Nama, &u.NIM, &u.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "scan user", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// DeleteUser removes a user; descriptors cascade via the foreign key.
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`DELETE FROM users WHERE id = $1 RETURNING id, nama, nim, created_at`, id,
	).Scan(&u.ID, &u.Nama, &u.NIM, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindStorage, "failed to delete user", err)
	}
	return u, nil
}

// --- Gallery ---

// LoadGallery reads every descriptor joined with its user into memory for one
// matching attempt. Ordered by user enrollment time then descriptor creation,
// which fixes the matcher's tie-break order.
func (s *PostgresStore) LoadGallery(ctx context.Context) ([]models.GalleryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fd.user_id, u.nama, u.nim, fd.descriptor
		 FROM face_descriptors fd
		 JOIN users u ON u.id = fd.user_id
		 ORDER BY u.created_at, fd.created_at`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	defer rows.Close()

	var gallery []models.GalleryEntry
	for rows.Next() {
		var e models.GalleryEntry
		var vec pgvector.Vector
		if err := rows.Scan(&e.UserID, &e.Nama, &e.NIM, &vec); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "scan gallery entry", err)
		}
		e.Vector = vec.Slice()
		gallery = append(gallery, e)
	}
	return gallery, nil
}

// --- Attendance ---

// TodayAttendance returns the user's most recent attendance row for the
// current day, or nil. This is a date-range query with no unique constraint
// behind it; two simultaneous checks for the same user can both see nil and
// double-insert (kept as-is, see DESIGN.md).
func (s *PostgresStore) TodayAttendance(ctx context.Context, userID uuid.UUID) (*models.Attendance, error) {
	a := &models.Attendance{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, timestamp, confidence_score, status, mood, mood_confidence, mood_emoji, snapshot_key
		 FROM attendance
		 WHERE user_id = $1 AND timestamp::date = CURRENT_DATE
		 ORDER BY timestamp DESC
		 LIMIT 1`, userID,
	).Scan(&a.ID, &a.UserID, &a.Timestamp, &a.ConfidenceScore, &a.Status,
		&a.Mood, &a.MoodConfidence, &a.MoodEmoji, &a.SnapshotKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	return a, nil
}

// RecordAttendance appends one accepted recognition as a single statement.
func (s *PostgresStore) RecordAttendance(ctx context.Context, a *models.Attendance) error {
	a.ID = uuid.New()
	a.Timestamp = time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO attendance (id, user_id, timestamp, confidence_score, status, mood, mood_confidence, mood_emoji, snapshot_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.Timestamp, a.ConfidenceScore, a.Status,
		a.Mood, a.MoodConfidence, a.MoodEmoji, a.SnapshotKey)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "failed to record attendance", err)
	}
	return nil
}

// AttendanceWithUser is one history row joined with its user.
type AttendanceWithUser struct {
	models.Attendance
	Nama string `json:"nama"`
	NIM  string `json:"nim"`
}

func (s *PostgresStore) ListAttendance(ctx context.Context, limit int) ([]AttendanceWithUser, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.timestamp, a.confidence_score, a.status,
		        a.mood, a.mood_confidence, a.mood_emoji, a.snapshot_key, u.nama, u.nim
		 FROM attendance a
		 JOIN users u ON u.id = a.user_id
		 ORDER BY a.timestamp DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	defer rows.Close()

	var records []AttendanceWithUser
	for rows.Next() {
		var r AttendanceWithUser
		if err := rows.Scan(&r.ID, &r.UserID, &r.Timestamp, &r.ConfidenceScore, &r.Status,
			&r.Mood, &r.MoodConfidence, &r.MoodEmoji, &r.SnapshotKey, &r.Nama, &r.NIM); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "scan attendance", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *PostgresStore) GetAttendance(ctx context.Context, id uuid.UUID) (*models.Attendance, error) {
	a := &models.Attendance{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, timestamp, confidence_score, status, mood, mood_confidence, mood_emoji, snapshot_key
		 FROM attendance WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.Timestamp, &a.ConfidenceScore, &a.Status,
		&a.Mood, &a.MoodConfidence, &a.MoodEmoji, &a.SnapshotKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindStorage, "database unavailable", err)
	}
	return a, nil
}
