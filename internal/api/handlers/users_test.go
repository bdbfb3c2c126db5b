package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceattend/internal/models"
	"github.com/your-org/faceattend/pkg/dto"
)

type fakeUserStore struct {
	users []models.User
}

func (f *fakeUserStore) ListUsers(context.Context) ([]models.User, error) {
	return f.users, nil
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return &u, nil
		}
	}
	return nil, nil
}

func TestListUsers(t *testing.T) {
	store := &fakeUserStore{users: []models.User{
		{ID: uuid.New(), Nama: "Budi", NIM: "101", CreatedAt: time.Now()},
		{ID: uuid.New(), Nama: "Siti", NIM: "102", CreatedAt: time.Now()},
	}}
	h := NewUsersHandler(store)

	r := gin.New()
	r.GET("/api/users", h.List)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var resp dto.UserListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Users) != 2 {
		t.Errorf("total/users = %d/%d; want 2/2", resp.Total, len(resp.Users))
	}
}

func TestDeleteUser(t *testing.T) {
	id := uuid.New()
	store := &fakeUserStore{users: []models.User{
		{ID: id, Nama: "Budi", NIM: "101", CreatedAt: time.Now()},
	}}
	h := NewUsersHandler(store)

	r := gin.New()
	r.DELETE("/api/users/:id", h.Delete)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/"+id.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if len(store.users) != 0 {
		t.Error("user should be removed")
	}

	// Deleting again is a 404, and a malformed id is a 400.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/"+id.String(), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", w.Code)
	}
}
