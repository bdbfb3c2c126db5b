package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceattend/internal/api"
	"github.com/your-org/faceattend/internal/api/handlers"
	"github.com/your-org/faceattend/internal/api/ws"
	"github.com/your-org/faceattend/internal/config"
	"github.com/your-org/faceattend/internal/enroll"
	"github.com/your-org/faceattend/internal/match"
	"github.com/your-org/faceattend/internal/models"
	"github.com/your-org/faceattend/internal/observability"
	"github.com/your-org/faceattend/internal/queue"
	"github.com/your-org/faceattend/internal/storage"
	"github.com/your-org/faceattend/internal/vision"
	"github.com/your-org/faceattend/pkg/dto"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting faceattend API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background(), cfg.Recognition.DescriptorDim); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStream(context.Background()); err != nil {
		slog.Warn("ensure nats stream", "error", err)
	}

	// WebSocket hub for the live attendance feed
	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeAttendance(ctx, "api-live-feed", func(ctx context.Context, msg jetstream.Msg) error {
		var ev models.AttendanceEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			slog.Error("unmarshal attendance event", "error", err)
			return nil // malformed events are not retryable
		}

		payload, err := json.Marshal(dto.WSEvent{
			Type: "attendance_recorded",
			Data: dto.AttendanceRecord{
				ID:              ev.AttendanceID,
				UserID:          ev.UserID,
				Nama:            ev.Nama,
				NIM:             ev.NIM,
				Timestamp:       ev.Timestamp.Format(time.RFC3339),
				ConfidenceScore: ev.ConfidenceScore,
				Status:          ev.Status,
				Mood:            ev.Mood,
				MoodConfidence:  ev.MoodConfidence,
				MoodEmoji:       ev.MoodEmoji,
			},
		})
		if err != nil {
			return err
		}
		hub.Broadcast(payload)
		return nil
	})
	if err != nil {
		slog.Warn("start live feed consumer", "error", err)
	}

	// Initialize ONNX Runtime and the vision pipeline. Without it the service
	// cannot serve recognition, so failure here is fatal.
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	pipeline, err := vision.NewPipeline(cfg.Recognition, cfg.Emotion)
	if err != nil {
		slog.Error("init vision pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	matcher := match.NewMatcher(cfg.Recognition.Tolerance, cfg.Recognition.StrongMatch)
	aggregator := enroll.NewAggregator(cfg.Recognition, pipeline.ExtractDescriptor)

	router := api.NewRouter(api.Deps{
		Register:   handlers.NewRegisterHandler(db, aggregator, minioStore),
		Attendance: handlers.NewAttendanceHandler(db, pipeline, matcher, minioStore, producer, cfg.Recognition.Quality),
		Users:      handlers.NewUsersHandler(db),
		System: handlers.NewSystemHandler(db.Ping, map[string]handlers.Pinger{
			"minio": minioStore.Ping,
			"nats":  func(context.Context) error { return producer.Ping() },
		}),
		Hub: hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
