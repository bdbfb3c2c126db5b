package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/enroll"
	"github.com/your-org/faceattend/internal/models"
	"github.com/your-org/faceattend/internal/observability"
	"github.com/your-org/faceattend/internal/vision"
	"github.com/your-org/faceattend/pkg/dto"
)

// RegistrationStore is the user-facing slice of the database layer.
type RegistrationStore interface {
	NIMExists(ctx context.Context, nim string) (bool, error)
	CreateUserWithDescriptors(ctx context.Context, nama, nim string, descriptors []models.FaceDescriptor) (*models.User, error)
}

// EnrollmentProcessor turns a candidate image batch into a descriptor set.
type EnrollmentProcessor interface {
	Process(images []string) ([]enroll.Sample, error)
}

// ObjectStore persists raw image bytes. nil disables snapshot keeping.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

type RegisterHandler struct {
	store     RegistrationStore
	processor EnrollmentProcessor
	objects   ObjectStore
}

func NewRegisterHandler(store RegistrationStore, processor EnrollmentProcessor, objects ObjectStore) *RegisterHandler {
	return &RegisterHandler{store: store, processor: processor, objects: objects}
}

// CheckNIM reports whether a NIM is already enrolled, for pre-flight
// validation in the registration form.
func (h *RegisterHandler) CheckNIM(c *gin.Context) {
	var req dto.CheckNIMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "nim is required", err))
		return
	}

	exists, err := h.store.NIMExists(c.Request.Context(), req.NIM)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CheckNIMResponse{Exists: exists})
}

// Register enrolls a new identity from a batch of candidate photos.
func (h *RegisterHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "nama, nim and images are required", err))
		return
	}
	if len(req.Images) == 0 {
		respondError(c, apperr.New(apperr.KindValidation, "at least one image is required"))
		return
	}

	ctx := c.Request.Context()

	exists, err := h.store.NIMExists(ctx, req.NIM)
	if err != nil {
		respondError(c, err)
		return
	}
	if exists {
		observability.EnrollmentsRejected.WithLabelValues("duplicate_identity").Inc()
		respondError(c, apperr.Newf(apperr.KindDuplicateIdentity, "NIM %s is already registered", req.NIM))
		return
	}

	samples, err := h.processor.Process(req.Images)
	if err != nil {
		observability.EnrollmentsRejected.WithLabelValues(apperr.KindOf(err).String()).Inc()
		respondError(c, err)
		return
	}

	descriptors := make([]models.FaceDescriptor, 0, len(samples))
	for i, s := range samples {
		d := models.FaceDescriptor{
			Vector:    s.Vector,
			Sharpness: s.Sharpness,
		}
		if h.objects != nil {
			if key, err := h.storeSource(ctx, req.NIM, i, req.Images[s.Index]); err != nil {
				slog.Warn("enrollment image not archived", "nim", req.NIM, "index", s.Index, "error", err)
			} else {
				d.SourceKey = key
			}
		}
		descriptors = append(descriptors, d)
	}

	user, err := h.store.CreateUserWithDescriptors(ctx, req.Nama, req.NIM, descriptors)
	if err != nil {
		respondError(c, err)
		return
	}

	observability.FacesEnrolled.Add(float64(len(descriptors)))
	slog.Info("user registered", "nama", user.Nama, "nim", user.NIM, "encodings", len(descriptors))

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		Success: true,
		Message: fmt.Sprintf("registered with %d face encodings", len(descriptors)),
		User: dto.RegisteredUser{
			ID:             user.ID,
			Nama:           user.Nama,
			NIM:            user.NIM,
			EncodingsSaved: len(descriptors),
		},
	})
}

func (h *RegisterHandler) storeSource(ctx context.Context, nim string, ordinal int, encoded string) (string, error) {
	raw, err := vision.DecodeBase64Bytes(encoded)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("enroll/%s/%d.jpg", nim, ordinal)
	if err := h.objects.PutObject(ctx, key, raw, "image/jpeg"); err != nil {
		return "", err
	}
	return key, nil
}
