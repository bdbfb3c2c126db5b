package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an enrolled identity. NIM is the external reference code and is
// unique across all users. Users are immutable after enrollment except deletion,
// which cascades to their descriptors.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Nama      string    `json:"nama" db:"nama"`
	NIM       string    `json:"nim" db:"nim"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FaceDescriptor is one stored embedding for a user. A user typically has
// several descriptors from multi-sample enrollment.
type FaceDescriptor struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Vector    []float32 `json:"-" db:"descriptor"`
	Sharpness float64   `json:"sharpness" db:"sharpness"`
	SourceKey string    `json:"source_key" db:"source_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GalleryEntry is one descriptor joined with its owning user, as loaded
// wholesale into memory for a matching attempt.
type GalleryEntry struct {
	UserID uuid.UUID
	Nama   string
	NIM    string
	Vector []float32
}
