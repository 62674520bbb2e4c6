package services

import (
	"context"
	"io"

	"github.com/Glaucio24/Redtea/internal/models"
)

// FileStore is the blob-storage boundary: verification images and post
// images are stored by reference and deleted by reference. URLs are
// resolved at read time, never persisted.
type FileStore interface {
	Save(ctx context.Context, userID, filename string, file io.Reader) (*models.ImageUploadResponse, error)
	URL(ref string) string
	// Delete removes a blob unconditionally. Reserved for moderation
	// cascades; user-facing paths go through DeleteOwned.
	Delete(ctx context.Context, ref string) error
	// DeleteOwned removes a blob only if userID uploaded it, returning
	// ErrUnauthorized otherwise.
	DeleteOwned(ctx context.Context, userID, ref string) error
}
