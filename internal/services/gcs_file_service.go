package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/Glaucio24/Redtea/internal/models"
)

// downloadTokenKey is the object-metadata key Firebase Storage reads
// download tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// GCSFileService stores blobs in a Firebase Storage bucket and hands out
// tokened download URLs. Deletion is by object reference. The token map
// is a cache; the object metadata written at upload time is the durable
// copy, so URLs survive a process restart.
type GCSFileService struct {
	gcs    *storage.Client
	bucket string

	mu     sync.Mutex
	tokens map[string]string // objectName -> download token
}

func NewGCSFileService(ctx context.Context, bucket string) (*GCSFileService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("filestore: storage client: %w", err)
	}
	return &GCSFileService{
		gcs:    client,
		bucket: bucket,
		tokens: make(map[string]string),
	}, nil
}

func (s *GCSFileService) Close() error {
	return s.gcs.Close()
}

func (s *GCSFileService) Save(ctx context.Context, userID string, filename string, file io.Reader) (*models.ImageUploadResponse, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	objectName := uuid.New().String() + ext
	token := newDownloadToken()

	obj := s.gcs.Bucket(s.bucket).Object(objectName)
	w := obj.NewWriter(ctx)
	w.Metadata = map[string]string{
		"userId":         userID,
		downloadTokenKey: token,
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("filestore: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("filestore: close: %w", err)
	}

	s.mu.Lock()
	s.tokens[objectName] = token
	s.mu.Unlock()
	return &models.ImageUploadResponse{
		ID:       objectName,
		URL:      firebaseDownloadURL(s.bucket, objectName, token),
		Filename: objectName,
	}, nil
}

func (s *GCSFileService) URL(ref string) string {
	if ref == "" {
		return ""
	}
	s.mu.Lock()
	token := s.tokens[ref]
	s.mu.Unlock()

	// Cache miss means the upload happened in a previous process; the
	// token lives on in the object metadata.
	if token == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if attrs, err := s.gcs.Bucket(s.bucket).Object(ref).Attrs(ctx); err == nil {
			token = downloadTokenFromMetadata(attrs.Metadata)
			if token != "" {
				s.mu.Lock()
				s.tokens[ref] = token
				s.mu.Unlock()
			}
		}
	}
	return firebaseDownloadURL(s.bucket, ref, token)
}

func downloadTokenFromMetadata(md map[string]string) string {
	if md == nil {
		return ""
	}
	return md[downloadTokenKey]
}

func (s *GCSFileService) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return ErrImageNotFound
	}
	err := s.gcs.Bucket(s.bucket).Object(ref).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return ErrImageNotFound
	}
	s.mu.Lock()
	delete(s.tokens, ref)
	s.mu.Unlock()
	return err
}

func (s *GCSFileService) DeleteOwned(ctx context.Context, userID, ref string) error {
	if ref == "" {
		return ErrImageNotFound
	}
	attrs, err := s.gcs.Bucket(s.bucket).Object(ref).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return ErrImageNotFound
	}
	if err != nil {
		return fmt.Errorf("filestore: attrs: %w", err)
	}
	if attrs.Metadata["userId"] != userID {
		return ErrUnauthorized
	}
	return s.Delete(ctx, ref)
}

func newDownloadToken() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

func firebaseDownloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}
