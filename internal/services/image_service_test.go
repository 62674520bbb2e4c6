package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageServiceSaveAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewImageService(t.TempDir())

	resp, err := svc.Save(ctx, "user_a", "photo.png", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+resp.ID, resp.URL)

	_, err = os.Stat(filepath.Join(svc.uploadDir, resp.ID))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, resp.ID))
	_, err = os.Stat(filepath.Join(svc.uploadDir, resp.ID))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, svc.Delete(ctx, resp.ID), ErrImageNotFound)
}

func TestImageServiceDeleteRejectsPathEscapes(t *testing.T) {
	ctx := context.Background()
	svc := NewImageService(t.TempDir())

	assert.ErrorIs(t, svc.Delete(ctx, "../secrets"), ErrImageNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "a/b.png"), ErrImageNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ""), ErrImageNotFound)
}

func TestImageServiceDeleteOwned(t *testing.T) {
	ctx := context.Background()
	svc := NewImageService(t.TempDir())

	resp, err := svc.Save(ctx, "user_a", "photo.jpg", strings.NewReader("pixels"))
	require.NoError(t, err)

	// Someone else's reference is forbidden and the file stays put.
	err = svc.DeleteOwned(ctx, "user_b", resp.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, statErr := os.Stat(filepath.Join(svc.uploadDir, resp.ID))
	require.NoError(t, statErr)

	require.NoError(t, svc.DeleteOwned(ctx, "user_a", resp.ID))
	_, statErr = os.Stat(filepath.Join(svc.uploadDir, resp.ID))
	assert.True(t, os.IsNotExist(statErr))

	assert.ErrorIs(t, svc.DeleteOwned(ctx, "user_a", "no-such-ref"), ErrImageNotFound)
}
