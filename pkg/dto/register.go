package dto

import "github.com/google/uuid"

type CheckNIMRequest struct {
	NIM string `json:"nim" binding:"required"`
}

type CheckNIMResponse struct {
	Exists bool `json:"exists"`
}

type RegisterRequest struct {
	Nama   string   `json:"nama" binding:"required"`
	NIM    string   `json:"nim" binding:"required"`
	Images []string `json:"images" binding:"required"`
}

type RegisteredUser struct {
	ID             uuid.UUID `json:"id"`
	Nama           string    `json:"nama"`
	NIM            string    `json:"nim"`
	EncodingsSaved int       `json:"encodings_saved"`
}

type RegisterResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	User    RegisteredUser `json:"user"`
}
