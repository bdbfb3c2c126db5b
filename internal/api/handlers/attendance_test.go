package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/match"
	"github.com/your-org/faceattend/internal/models"
	"github.com/your-org/faceattend/internal/storage"
	"github.com/your-org/faceattend/pkg/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func relaxedQuality() config.QualityConfig {
	return config.QualityConfig{
		MinDimension:  50,
		MinBrightness: 15,
		MaxBrightness: 245,
		MinSharpness:  10,
		MaxImageSize:  1024,
	}
}

// probeImage is a checkerboard that passes the quality gate.
func probeImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			c := color.RGBA{A: 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type fakeAttendanceStore struct {
	gallery  []models.GalleryEntry
	recorded []models.Attendance
}

func (f *fakeAttendanceStore) LoadGallery(context.Context) ([]models.GalleryEntry, error) {
	return f.gallery, nil
}

func (f *fakeAttendanceStore) TodayAttendance(_ context.Context, userID uuid.UUID) (*models.Attendance, error) {
	for i := range f.recorded {
		if f.recorded[i].UserID == userID {
			return &f.recorded[i], nil
		}
	}
	return nil, nil
}

func (f *fakeAttendanceStore) RecordAttendance(_ context.Context, a *models.Attendance) error {
	a.ID = uuid.New()
	a.Timestamp = time.Now()
	f.recorded = append(f.recorded, *a)
	return nil
}

func (f *fakeAttendanceStore) ListAttendance(context.Context, int) ([]storage.AttendanceWithUser, error) {
	return nil, nil
}

func (f *fakeAttendanceStore) GetAttendance(context.Context, uuid.UUID) (*models.Attendance, error) {
	return nil, nil
}

type fakeFaces struct {
	descriptor []float32
	err        error
	scores     map[string]float64
}

func (f *fakeFaces) ExtractDescriptor(image.Image) ([]float32, error) {
	return f.descriptor, f.err
}

func (f *fakeFaces) EmotionScores(image.Image) map[string]float64 {
	return f.scores
}

type fakeEvents struct {
	published int
	err       error
}

func (f *fakeEvents) PublishAttendance(context.Context, string, interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published++
	return nil
}

func checkRequest(t *testing.T, h *AttendanceHandler, body interface{}) (*httptest.ResponseRecorder, dto.CheckAttendanceResponse) {
	t.Helper()
	r := gin.New()
	r.POST("/api/attendance/check", h.Check)

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/check", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp dto.CheckAttendanceResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestCheckRecordsAttendance(t *testing.T) {
	userID := uuid.New()
	store := &fakeAttendanceStore{gallery: []models.GalleryEntry{
		{UserID: userID, Nama: "Budi", NIM: "101", Vector: []float32{0}},
	}}
	events := &fakeEvents{}
	h := NewAttendanceHandler(store, &fakeFaces{descriptor: []float32{0}}, match.NewMatcher(0.45, 0.35), nil, events, relaxedQuality())

	w, resp := checkRequest(t, h, dto.CheckAttendanceRequest{Image: probeImage(t)})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201: %s", w.Code, w.Body.String())
	}
	if !resp.Recognized || resp.AlreadyRecorded {
		t.Errorf("recognized/already = %v/%v; want true/false", resp.Recognized, resp.AlreadyRecorded)
	}
	if resp.User == nil || resp.User.Nama != "Budi" {
		t.Error("response should carry the matched user")
	}
	if resp.Attendance == nil || resp.Attendance.Status != StatusPresent {
		t.Errorf("attendance info missing or wrong status")
	}
	// Zero distance below the strong-match threshold boosts to the 99 cap.
	if resp.Confidence != 99 {
		t.Errorf("confidence = %f; want 99", resp.Confidence)
	}
	// No emotion signal falls back to neutral, never fails the request.
	if resp.Emotion.Detected != "neutral" || resp.Emotion.Confidence != 60 {
		t.Errorf("emotion = %s/%f; want neutral/60 fallback", resp.Emotion.Detected, resp.Emotion.Confidence)
	}
	if resp.Notification == nil || !resp.Notification.Queued {
		t.Error("notification should be queued")
	}
	if len(store.recorded) != 1 {
		t.Errorf("recorded rows = %d; want 1", len(store.recorded))
	}
	if events.published != 1 {
		t.Errorf("published events = %d; want 1", events.published)
	}
}

func TestCheckSecondScanSameDayIsIdempotent(t *testing.T) {
	userID := uuid.New()
	store := &fakeAttendanceStore{gallery: []models.GalleryEntry{
		{UserID: userID, Nama: "Budi", NIM: "101", Vector: []float32{0}},
	}}
	events := &fakeEvents{}
	h := NewAttendanceHandler(store, &fakeFaces{descriptor: []float32{0}}, match.NewMatcher(0.45, 0.35), nil, events, relaxedQuality())

	img := probeImage(t)
	if w, _ := checkRequest(t, h, dto.CheckAttendanceRequest{Image: img}); w.Code != http.StatusCreated {
		t.Fatalf("first check status = %d; want 201", w.Code)
	}

	w, resp := checkRequest(t, h, dto.CheckAttendanceRequest{Image: img})
	if w.Code != http.StatusOK {
		t.Fatalf("second check status = %d; want 200", w.Code)
	}
	if !resp.Recognized || !resp.AlreadyRecorded {
		t.Errorf("recognized/already = %v/%v; want true/true", resp.Recognized, resp.AlreadyRecorded)
	}
	if resp.LastAttendance == "" {
		t.Error("response should carry the earlier attendance timestamp")
	}
	if len(store.recorded) != 1 {
		t.Errorf("recorded rows = %d; want 1 (no duplicate insert)", len(store.recorded))
	}
	if events.published != 1 {
		t.Errorf("published events = %d; want 1 (no duplicate notification)", events.published)
	}
}

func TestCheckUnrecognizedFace(t *testing.T) {
	store := &fakeAttendanceStore{gallery: []models.GalleryEntry{
		{UserID: uuid.New(), Nama: "Budi", NIM: "101", Vector: []float32{2}},
	}}
	h := NewAttendanceHandler(store, &fakeFaces{descriptor: []float32{0}}, match.NewMatcher(0.45, 0.35), nil, &fakeEvents{}, relaxedQuality())

	w, resp := checkRequest(t, h, dto.CheckAttendanceRequest{Image: probeImage(t)})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if resp.Recognized {
		t.Error("distant probe should not be recognized")
	}
	if len(store.recorded) != 0 {
		t.Error("unrecognized probe must not create attendance rows")
	}
}

func TestCheckEmptyGallery(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendanceStore{}, &fakeFaces{descriptor: []float32{0}}, match.NewMatcher(0.45, 0.35), nil, &fakeEvents{}, relaxedQuality())

	w, _ := checkRequest(t, h, dto.CheckAttendanceRequest{Image: probeImage(t)})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404 for empty gallery", w.Code)
	}
}

func TestCheckNoFaceDetected(t *testing.T) {
	faces := &fakeFaces{err: apperr.New(apperr.KindNoFaceDetected, "no face detected, make sure the face is clearly visible")}
	h := NewAttendanceHandler(&fakeAttendanceStore{}, faces, match.NewMatcher(0.45, 0.35), nil, &fakeEvents{}, relaxedQuality())

	w, _ := checkRequest(t, h, dto.CheckAttendanceRequest{Image: probeImage(t)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", w.Code)
	}
}

func TestCheckInvalidImage(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendanceStore{}, &fakeFaces{}, match.NewMatcher(0.45, 0.35), nil, &fakeEvents{}, relaxedQuality())

	w, _ := checkRequest(t, h, dto.CheckAttendanceRequest{Image: "not-an-image"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", w.Code)
	}
}

func TestCheckPublishFailureDoesNotFailRequest(t *testing.T) {
	userID := uuid.New()
	store := &fakeAttendanceStore{gallery: []models.GalleryEntry{
		{UserID: userID, Nama: "Budi", NIM: "101", Vector: []float32{0}},
	}}
	events := &fakeEvents{err: errors.New("nats down")}
	h := NewAttendanceHandler(store, &fakeFaces{descriptor: []float32{0}}, match.NewMatcher(0.45, 0.35), nil, events, relaxedQuality())

	w, resp := checkRequest(t, h, dto.CheckAttendanceRequest{Image: probeImage(t)})

	// The row is committed; a queue failure only downgrades the notification.
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201", w.Code)
	}
	if resp.Notification == nil || resp.Notification.Queued {
		t.Error("notification should report not queued")
	}
	if len(store.recorded) != 1 {
		t.Errorf("recorded rows = %d; want 1", len(store.recorded))
	}
}

func TestCheckEmotionFromScores(t *testing.T) {
	userID := uuid.New()
	store := &fakeAttendanceStore{gallery: []models.GalleryEntry{
		{UserID: userID, Nama: "Budi", NIM: "101", Vector: []float32{0}},
	}}
	faces := &fakeFaces{
		descriptor: []float32{0},
		scores: map[string]float64{
			"happy": 40, "surprise": 5, "neutral": 30,
			"sad": 10, "angry": 5, "fear": 5, "disgust": 5,
		},
	}
	h := NewAttendanceHandler(store, faces, match.NewMatcher(0.45, 0.35), nil, &fakeEvents{}, relaxedQuality())

	_, resp := checkRequest(t, h, dto.CheckAttendanceRequest{Image: probeImage(t)})

	if resp.Emotion.Detected != "positive" {
		t.Errorf("emotion = %s; want positive", resp.Emotion.Detected)
	}
	if resp.Emotion.Indonesian != "Baik" || resp.Emotion.Emoji != "😊" {
		t.Errorf("presentation = %s %s; want 😊 Baik", resp.Emotion.Emoji, resp.Emotion.Indonesian)
	}
	if len(store.recorded) != 1 || store.recorded[0].Mood != "positive" {
		t.Error("mood should be persisted with the attendance row")
	}
}
