package domain

import (
	"time"

	"github.com/google/uuid"
)

// Template is a user-owned block of instructions applied as the system prompt
// of a text generation. Templates are managed elsewhere and only read here.
type Template struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
