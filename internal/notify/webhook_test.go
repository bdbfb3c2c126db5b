package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/models"
)

func testEvent() models.AttendanceEvent {
	return models.AttendanceEvent{
		AttendanceID:    uuid.New(),
		UserID:          uuid.New(),
		Nama:            "Budi Santoso",
		NIM:             "2110511001",
		Timestamp:       time.Date(2026, 8, 30, 7, 45, 12, 0, time.UTC),
		Status:          "Hadir",
		ConfidenceScore: 87.5,
		Mood:            "positive",
		MoodConfidence:  75,
		MoodEmoji:       "😊",
	}
}

func TestBuildPayload(t *testing.T) {
	p := BuildPayload(testEvent())

	if p.Nama != "Budi Santoso" || p.NIM != "2110511001" {
		t.Errorf("identity = %s/%s; want Budi Santoso/2110511001", p.Nama, p.NIM)
	}
	if p.Timestamp != "2026-08-30T07:45:12Z" {
		t.Errorf("timestamp = %s; want RFC3339", p.Timestamp)
	}
	if p.Date != "2026-08-30" {
		t.Errorf("date = %s; want 2026-08-30", p.Date)
	}
	if p.Time != "07:45:12" {
		t.Errorf("time = %s; want 07:45:12", p.Time)
	}
	if p.Emotion != "positive" || p.EmotionConfidence != 75 || p.Emoji != "😊" {
		t.Errorf("emotion fields = %s/%f/%s; want positive/75/😊", p.Emotion, p.EmotionConfidence, p.Emoji)
	}
}

func TestSendUnconfiguredIsNoop(t *testing.T) {
	w := NewWebhook(config.WebhookConfig{URL: "", Timeout: time.Second})
	if w.Configured() {
		t.Error("empty URL should report unconfigured")
	}
	if err := w.Send(context.Background(), testEvent()); err != nil {
		t.Errorf("unconfigured send should be a no-op, got %v", err)
	}
}

func TestSendDeliversPayload(t *testing.T) {
	var received Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s; want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s; want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(config.WebhookConfig{URL: srv.URL, Timeout: 2 * time.Second})
	if err := w.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received.NIM != "2110511001" {
		t.Errorf("delivered nim = %s; want 2110511001", received.NIM)
	}
	if received.Status != "Hadir" {
		t.Errorf("delivered status = %s; want Hadir", received.Status)
	}
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(config.WebhookConfig{URL: srv.URL, Timeout: 2 * time.Second})
	if err := w.Send(context.Background(), testEvent()); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	w := NewWebhook(config.WebhookConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})
	if err := w.Send(context.Background(), testEvent()); err == nil {
		t.Error("expected timeout error")
	}
}
