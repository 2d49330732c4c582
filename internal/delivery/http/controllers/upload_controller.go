package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// PresignImageRequest is the request body for POST /api/uploads/images.
type PresignImageRequest struct {
	ContentType string `json:"contentType"`
}

// Validate implements Validator.
func (p PresignImageRequest) Validate() []string {
	if !strings.HasPrefix(strings.TrimSpace(p.ContentType), "image/") {
		return []string{"contentType must be an image type"}
	}
	return nil
}

type UploadController struct {
	Logger  *slog.Logger
	Storage domain.ImageStorage
}

func NewUploadController(logger *slog.Logger, storage domain.ImageStorage) *UploadController {
	return &UploadController{Logger: logger, Storage: storage}
}

// PresignImage godoc
// @Summary Get an upload URL for an event image
// @Description Returns a short-lived presigned PUT URL and the public URL to store in the event's image field.
// @Tags uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PresignImageRequest true "Content type of the image"
// @Success 200 {object} helpers.APIResponse "data contains key, uploadUrl, imageUrl and expiresAt"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /uploads/images [post]
func (c *UploadController) PresignImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req PresignImageRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	upload, err := c.Storage.PresignUpload(r.Context(), userID, strings.TrimSpace(req.ContentType))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, upload)
}
