package models

import (
	"time"

	"github.com/google/uuid"
)

// Attendance is one accepted recognition event. Rows are append-only; the
// query layer treats the first row of a day as canonical.
type Attendance struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
	ConfidenceScore float64   `json:"confidence_score" db:"confidence_score"`
	Status          string    `json:"status" db:"status"`
	Mood            string    `json:"mood" db:"mood"`
	MoodConfidence  float64   `json:"mood_confidence" db:"mood_confidence"`
	MoodEmoji       string    `json:"mood_emoji" db:"mood_emoji"`
	SnapshotKey     string    `json:"-" db:"snapshot_key"`
}

// AttendanceEvent is the message published to NATS when an attendance row
// has been committed. The notifier consumes it for webhook delivery and the
// API broadcasts it to WebSocket clients.
type AttendanceEvent struct {
	AttendanceID    uuid.UUID `json:"attendance_id"`
	UserID          uuid.UUID `json:"user_id"`
	Nama            string    `json:"nama"`
	NIM             string    `json:"nim"`
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
	ConfidenceScore float64   `json:"confidence_score"`
	Mood            string    `json:"mood"`
	MoodConfidence  float64   `json:"mood_confidence"`
	MoodEmoji       string    `json:"mood_emoji"`
}
