package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceattend/internal/apperr"
	"github.com/your-org/faceattend/internal/models"
	"github.com/your-org/faceattend/pkg/dto"
)

type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type UsersHandler struct {
	store UserStore
}

func NewUsersHandler(store UserStore) *UsersHandler {
	return &UsersHandler{store: store}
}

func (h *UsersHandler) List(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userDTO(u))
	}
	c.JSON(http.StatusOK, dto.UserListResponse{Users: out, Total: len(out)})
}

// Delete removes a user; descriptors and attendance rows cascade.
func (h *UsersHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "invalid user id", err))
		return
	}

	user, err := h.store.DeleteUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		respondError(c, apperr.New(apperr.KindNotFound, "user not found"))
		return
	}

	slog.Info("user deleted", "nama", user.Nama, "nim", user.NIM)
	c.JSON(http.StatusOK, dto.DeleteUserResponse{
		Success: true,
		Message: "user deleted",
		User:    userDTO(*user),
	})
}

func userDTO(u models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Nama:      u.Nama,
		NIM:       u.NIM,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
