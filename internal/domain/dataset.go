package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dataset kinds a user can upload.
const (
	DatasetTypeText     = "TEXT"
	DatasetTypeImage    = "IMAGE"
	DatasetTypeCode     = "CODE"
	DatasetTypeResearch = "RESEARCH"
)

// Dataset is user-owned reference material a text generation can draw on.
// Datasets are managed elsewhere and only read here.
type Dataset struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
