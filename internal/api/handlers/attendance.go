package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/emotion"
	"github.com/your-org/faceattend/internal/match"
	"github.com/your-org/faceattend/internal/models"
	"github.com/your-org/faceattend/internal/observability"
	"github.com/your-org/faceattend/internal/storage"
	"github.com/your-org/faceattend/internal/vision"
	"github.com/your-org/faceattend/pkg/dto"
)

// StatusPresent is the attendance status recorded for an accepted check.
const StatusPresent = "Hadir"

// AttendanceStore is the attendance-facing slice of the database layer.
type AttendanceStore interface {
	LoadGallery(ctx context.Context) ([]models.GalleryEntry, error)
	TodayAttendance(ctx context.Context, userID uuid.UUID) (*models.Attendance, error)
	RecordAttendance(ctx context.Context, a *models.Attendance) error
	ListAttendance(ctx context.Context, limit int) ([]storage.AttendanceWithUser, error)
	GetAttendance(ctx context.Context, id uuid.UUID) (*models.Attendance, error)
}

// FaceReader is the inference surface the check flow needs.
type FaceReader interface {
	ExtractDescriptor(img image.Image) ([]float32, error)
	EmotionScores(img image.Image) map[string]float64
}

// SnapshotStore archives and serves probe snapshots. nil disables snapshots.
type SnapshotStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// EventPublisher enqueues committed attendance events. nil disables the
// notification path entirely.
type EventPublisher interface {
	PublishAttendance(ctx context.Context, userID string, data interface{}) error
}

type AttendanceHandler struct {
	store     AttendanceStore
	faces     FaceReader
	matcher   *match.Matcher
	snapshots SnapshotStore
	events    EventPublisher
	quality   config.QualityConfig
}

func NewAttendanceHandler(store AttendanceStore, faces FaceReader, matcher *match.Matcher,
	snapshots SnapshotStore, events EventPublisher, quality config.QualityConfig) *AttendanceHandler {
	return &AttendanceHandler{
		store:     store,
		faces:     faces,
		matcher:   matcher,
		snapshots: snapshots,
		events:    events,
		quality:   quality,
	}
}

// Check runs the full recognition flow for one probe image: quality gate,
// descriptor extraction, gallery match, day-duplicate check, insert, enqueue.
// Emotion is advisory and computed alongside; it never fails the request.
func (h *AttendanceHandler) Check(c *gin.Context) {
	var req dto.CheckAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "image is required", err))
		return
	}

	ctx := c.Request.Context()

	img, err := vision.DecodeBase64Image(req.Image, h.quality.MaxImageSize)
	if err != nil {
		observability.AttendanceChecks.WithLabelValues("rejected").Inc()
		respondError(c, err)
		return
	}

	if err := vision.ValidateQuality(img, h.quality); err != nil {
		observability.AttendanceChecks.WithLabelValues("rejected").Inc()
		respondError(c, err)
		return
	}

	probe, err := h.faces.ExtractDescriptor(img)
	if err != nil {
		observability.AttendanceChecks.WithLabelValues("rejected").Inc()
		respondError(c, err)
		return
	}

	mood := emotion.Classify(h.faces.EmotionScores(img))
	emotionInfo := emotionDTO(mood)

	gallery, err := h.store.LoadGallery(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(gallery) == 0 {
		respondError(c, apperr.New(apperr.KindNotFound, "no registered faces yet"))
		return
	}

	res := h.matcher.Match(gallery, probe)
	if !res.Matched {
		observability.AttendanceChecks.WithLabelValues("unrecognized").Inc()
		c.JSON(http.StatusOK, dto.CheckAttendanceResponse{
			Recognized: false,
			Message:    "face not recognized",
			Confidence: res.Candidate.Confidence,
			Emotion:    emotionInfo,
		})
		return
	}
	cand := res.Candidate

	last, err := h.store.TodayAttendance(ctx, cand.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if last != nil {
		observability.AttendanceChecks.WithLabelValues("already_recorded").Inc()
		c.JSON(http.StatusOK, dto.CheckAttendanceResponse{
			Recognized:      true,
			AlreadyRecorded: true,
			Message:         fmt.Sprintf("%s already recorded attendance today", cand.Nama),
			Confidence:      cand.Confidence,
			User:            &dto.UserInfo{Nama: cand.Nama, NIM: cand.NIM},
			LastAttendance:  last.Timestamp.Format(time.RFC3339),
			Emotion:         emotionInfo,
		})
		return
	}

	record := &models.Attendance{
		UserID:          cand.UserID,
		ConfidenceScore: cand.Confidence,
		Status:          StatusPresent,
		Mood:            string(mood.Category),
		MoodConfidence:  mood.Confidence,
		MoodEmoji:       mood.Emoji,
		SnapshotKey:     h.storeSnapshot(ctx, img),
	}
	if err := h.store.RecordAttendance(ctx, record); err != nil {
		respondError(c, err)
		return
	}

	notification := h.enqueue(ctx, record, cand)

	observability.AttendanceChecks.WithLabelValues("recorded").Inc()
	slog.Info("attendance recorded",
		"nama", cand.Nama, "nim", cand.NIM,
		"confidence", cand.Confidence, "mood", mood.Category)

	c.JSON(http.StatusCreated, dto.CheckAttendanceResponse{
		Recognized: true,
		Message:    fmt.Sprintf("attendance recorded for %s", cand.Nama),
		Confidence: cand.Confidence,
		User:       &dto.UserInfo{Nama: cand.Nama, NIM: cand.NIM},
		Attendance: &dto.AttendanceInfo{
			Timestamp:  record.Timestamp.Format(time.RFC3339),
			Confidence: cand.Confidence,
			Status:     record.Status,
		},
		Emotion:      emotionInfo,
		Notification: notification,
	})
}

// storeSnapshot archives the probe image best-effort and returns its key,
// or "" when snapshots are disabled or the upload failed.
func (h *AttendanceHandler) storeSnapshot(ctx context.Context, img image.Image) string {
	if h.snapshots == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		slog.Warn("snapshot encode failed", "error", err)
		return ""
	}
	key := fmt.Sprintf("attendance/%s/%s.jpg", time.Now().Format("2006-01-02"), uuid.New())
	if err := h.snapshots.PutObject(ctx, key, buf.Bytes(), "image/jpeg"); err != nil {
		slog.Warn("snapshot upload failed", "key", key, "error", err)
		return ""
	}
	return key
}

// enqueue publishes the committed event for webhook delivery and the live
// feed. The row is already committed, so a publish failure only downgrades
// the notification status in the response.
func (h *AttendanceHandler) enqueue(ctx context.Context, record *models.Attendance, cand *match.Candidate) *dto.NotificationInfo {
	if h.events == nil {
		return &dto.NotificationInfo{Queued: false, Message: "notifications disabled"}
	}

	ev := models.AttendanceEvent{
		AttendanceID:    record.ID,
		UserID:          record.UserID,
		Nama:            cand.Nama,
		NIM:             cand.NIM,
		Timestamp:       record.Timestamp,
		Status:          record.Status,
		ConfidenceScore: record.ConfidenceScore,
		Mood:            record.Mood,
		MoodConfidence:  record.MoodConfidence,
		MoodEmoji:       record.MoodEmoji,
	}
	if err := h.events.PublishAttendance(ctx, record.UserID.String(), ev); err != nil {
		slog.Error("enqueue attendance event", "attendance_id", record.ID, "error", err)
		return &dto.NotificationInfo{Queued: false, Message: "notification could not be queued"}
	}
	return &dto.NotificationInfo{Queued: true, Message: "notification queued"}
}

// List returns recent attendance history joined with user identity.
func (h *AttendanceHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	records, err := h.store.ListAttendance(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]dto.AttendanceRecord, 0, len(records))
	for _, r := range records {
		rec := dto.AttendanceRecord{
			ID:              r.ID,
			UserID:          r.UserID,
			Nama:            r.Nama,
			NIM:             r.NIM,
			Timestamp:       r.Timestamp.Format(time.RFC3339),
			ConfidenceScore: r.ConfidenceScore,
			Status:          r.Status,
			Mood:            r.Mood,
			MoodConfidence:  r.MoodConfidence,
			MoodEmoji:       r.MoodEmoji,
		}
		if r.SnapshotKey != "" {
			rec.SnapshotURL = fmt.Sprintf("/api/attendance/%s/snapshot", r.ID)
		}
		out = append(out, rec)
	}

	c.JSON(http.StatusOK, dto.AttendanceListResponse{Attendance: out, Total: len(out)})
}

// Snapshot serves the archived probe image for one attendance row.
func (h *AttendanceHandler) Snapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "invalid attendance id", err))
		return
	}

	record, err := h.store.GetAttendance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if record == nil || record.SnapshotKey == "" || h.snapshots == nil {
		respondError(c, apperr.New(apperr.KindNotFound, "snapshot not found"))
		return
	}

	data, err := h.snapshots.GetObject(c.Request.Context(), record.SnapshotKey)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindStorage, "failed to load snapshot", err))
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

func emotionDTO(o emotion.Outcome) dto.EmotionInfo {
	return dto.EmotionInfo{
		Detected:   string(o.Category),
		Indonesian: o.Label,
		Emoji:      o.Emoji,
		Confidence: o.Confidence,
		Color:      o.Color,
	}
}
