package domain

import (
	"context"
	"errors"
	"time"
)

// ErrStorageDisabled is returned when no object storage is configured for uploads.
var ErrStorageDisabled = errors.New("image storage is not configured")

// ImageUpload describes where a client should PUT an event image and how to reference it afterwards.
// swagger:model ImageUpload
type ImageUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	ImageURL  string    `json:"imageUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ImageStorage issues short-lived upload URLs for event images.
type ImageStorage interface {
	PresignUpload(ctx context.Context, userID, contentType string) (*ImageUpload, error)
}
