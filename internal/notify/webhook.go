package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/models"
	"github.com/your-org/faceattend/internal/observability"
)

// Payload is the webhook body sent to the automation endpoint per accepted
// attendance event.
type Payload struct {
	Nama              string  `json:"nama"`
	NIM               string  `json:"nim"`
	Timestamp         string  `json:"timestamp"`
	Status            string  `json:"status"`
	ConfidenceScore   float64 `json:"confidence_score"`
	Date              string  `json:"date"`
	Time              string  `json:"time"`
	Emotion           string  `json:"emotion,omitempty"`
	EmotionConfidence float64 `json:"emotion_confidence,omitempty"`
	Emoji             string  `json:"emoji,omitempty"`
}

// Webhook delivers attendance notifications best-effort. Delivery failure is
// logged and counted, never propagated: the attendance row is already
// committed by the time a notification is attempted.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(cfg config.WebhookConfig) *Webhook {
	return &Webhook{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether a delivery endpoint is set. An unconfigured
// webhook is a valid deployment, not an error.
func (w *Webhook) Configured() bool {
	return w.url != ""
}

// BuildPayload maps a committed attendance event to the webhook body.
func BuildPayload(ev models.AttendanceEvent) Payload {
	return Payload{
		Nama:              ev.Nama,
		NIM:               ev.NIM,
		Timestamp:         ev.Timestamp.Format(time.RFC3339),
		Status:            ev.Status,
		ConfidenceScore:   ev.ConfidenceScore,
		Date:              ev.Timestamp.Format("2006-01-02"),
		Time:              ev.Timestamp.Format("15:04:05"),
		Emotion:           ev.Mood,
		EmotionConfidence: ev.MoodConfidence,
		Emoji:             ev.MoodEmoji,
	}
}

// Send posts one attendance event. The HTTP client timeout bounds the call;
// ctx allows shutdown to cancel in-flight deliveries.
func (w *Webhook) Send(ctx context.Context, ev models.AttendanceEvent) error {
	if !w.Configured() {
		slog.Debug("webhook not configured, skipping notification", "nim", ev.NIM)
		observability.Notifications.WithLabelValues("skipped").Inc()
		return nil
	}

	body, err := json.Marshal(BuildPayload(ev))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		observability.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	observability.Notifications.WithLabelValues("delivered").Inc()
	slog.Info("attendance notification delivered", "nama", ev.Nama, "nim", ev.NIM)
	return nil
}
