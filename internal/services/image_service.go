package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Glaucio24/Redtea/internal/models"
)

// ImageService stores uploads on local disk, served under /uploads/.
// Used in dev mode; production uses the GCS-backed store.
type ImageService struct {
	mu        sync.Mutex
	uploadDir string
	owners    map[string]string // ref -> uploader subject ID
}

func NewImageService(uploadDir string) *ImageService {
	// Create upload directory if it doesn't exist
	os.MkdirAll(uploadDir, 0755)

	return &ImageService{
		uploadDir: uploadDir,
		owners:    make(map[string]string),
	}
}

func (s *ImageService) Save(ctx context.Context, userID string, filename string, file io.Reader) (*models.ImageUploadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imageID := uuid.New().String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}

	newFilename := imageID + ext
	filePath := filepath.Join(s.uploadDir, newFilename)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(filePath) // Clean up on error
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.owners[newFilename] = userID

	return &models.ImageUploadResponse{
		ID:       newFilename,
		URL:      "/uploads/" + newFilename,
		Filename: newFilename,
	}, nil
}

func (s *ImageService) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return "/uploads/" + ref
}

func (s *ImageService) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Refs are bare filenames; refuse anything that escapes the dir.
	if ref == "" || strings.Contains(ref, "/") || strings.Contains(ref, "..") {
		return ErrImageNotFound
	}

	filePath := filepath.Join(s.uploadDir, ref)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	delete(s.owners, ref)
	return nil
}

func (s *ImageService) DeleteOwned(ctx context.Context, userID, ref string) error {
	s.mu.Lock()
	owner, ok := s.owners[ref]
	s.mu.Unlock()
	if !ok {
		return ErrImageNotFound
	}
	if owner != userID {
		return ErrUnauthorized
	}
	return s.Delete(ctx, ref)
}
