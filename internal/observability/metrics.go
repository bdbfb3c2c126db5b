package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttendanceChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "attendance_checks_total",
		Help:      "Total attendance check requests by outcome",
	}, []string{"result"}) // recorded, already_recorded, unrecognized, rejected

	FacesEnrolled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "faces_enrolled_total",
		Help:      "Total face descriptors persisted during enrollment",
	})

	EnrollmentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "enrollments_rejected_total",
		Help:      "Enrollment batches rejected by reason",
	}, []string{"reason"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceattend",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceattend",
		Name:      "notifications_total",
		Help:      "Webhook notification delivery outcomes",
	}, []string{"status"}) // delivered, failed, skipped

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceattend",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceattend",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
