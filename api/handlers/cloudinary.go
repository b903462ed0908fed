package handlers

import (
	"errors"
	"net/http"

	"github.com/linesmerrill/urban-issue-api/config"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/uploads"
)

// Signer signs direct browser uploads
type Signer interface {
	Sign() (*uploads.Signature, error)
}

// CloudinaryHandler handles Cloudinary related requests
type CloudinaryHandler struct {
	Signer Signer
}

// GenerateSignature returns a signature clients use to upload an issue image straight
// to Cloudinary, then send the resulting URL with the report.
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	if c.Signer == nil {
		config.WriteError(w, http.StatusServiceUnavailable, models.ErrorResponse{Message: "Image uploads are not enabled"})
		return
	}
	sig, err := c.Signer.Sign()
	if errors.Is(err, uploads.ErrNotConfigured) {
		config.WriteError(w, http.StatusServiceUnavailable, models.ErrorResponse{Message: "Image uploads are not enabled"})
		return
	}
	if err != nil {
		config.ErrorStatus("server error while signing upload", http.StatusInternalServerError, w, err)
		return
	}
	writeData(w, http.StatusOK, "", sig)
}
