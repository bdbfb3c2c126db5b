package dto

import "github.com/google/uuid"

type CheckAttendanceRequest struct {
	Image string `json:"image" binding:"required"`
}

type UserInfo struct {
	Nama string `json:"nama"`
	NIM  string `json:"nim"`
}

type AttendanceInfo struct {
	Timestamp  string  `json:"timestamp"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

type EmotionInfo struct {
	Detected   string  `json:"detected"`
	Indonesian string  `json:"indonesian"`
	Emoji      string  `json:"emoji"`
	Confidence float64 `json:"confidence"`
	Color      string  `json:"color"`
}

type NotificationInfo struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

type CheckAttendanceResponse struct {
	Recognized      bool              `json:"recognized"`
	AlreadyRecorded bool              `json:"already_recorded,omitempty"`
	Message         string            `json:"message"`
	Confidence      float64           `json:"confidence,omitempty"`
	User            *UserInfo         `json:"user,omitempty"`
	Attendance      *AttendanceInfo   `json:"attendance,omitempty"`
	LastAttendance  string            `json:"last_attendance,omitempty"`
	Emotion         EmotionInfo       `json:"emotion"`
	Notification    *NotificationInfo `json:"notification,omitempty"`
}

type AttendanceRecord struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Nama            string    `json:"nama"`
	NIM             string    `json:"nim"`
	Timestamp       string    `json:"timestamp"`
	ConfidenceScore float64   `json:"confidence_score"`
	Status          string    `json:"status"`
	Mood            string    `json:"mood"`
	MoodConfidence  float64   `json:"mood_confidence"`
	MoodEmoji       string    `json:"mood_emoji"`
	SnapshotURL     string    `json:"snapshot_url,omitempty"`
}

type AttendanceListResponse struct {
	Attendance []AttendanceRecord `json:"attendance"`
	Total      int                `json:"total"`
}

// WSEvent is a WebSocket message for the live attendance feed.
type WSEvent struct {
	Type string           `json:"type"` // attendance_recorded
	Data AttendanceRecord `json:"data"`
}
