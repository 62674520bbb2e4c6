package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glaucio24/Redtea/internal/models"
)

func TestGeneratePseudonymIsStable(t *testing.T) {
	a := GeneratePseudonym("user_abc123")
	b := GeneratePseudonym("user_abc123")
	assert.Equal(t, a, b)
	assert.Regexp(t, `^User\d{4}$`, a)
}

func TestUpsertFromIdentityEvent(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(nil, nil)

	user, err := svc.UpsertFromIdentityEvent(ctx, "user_1", "a@example.com", "Ana", "")
	require.NoError(t, err)
	assert.Equal(t, "user_1", user.SubjectID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, models.VerificationNone, user.VerificationStatus)
	assert.NotEmpty(t, user.Pseudonym)

	// A repeat event for the same subject updates profile fields in
	// place; no second record appears.
	again, err := svc.UpsertFromIdentityEvent(ctx, "user_1", "new@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "new@example.com", again.Email)
	assert.Equal(t, "Ana", again.Name)

	all, err := svc.ListOnboarded(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCompleteOnboarding(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(nil, nil)

	_, err := svc.UpsertFromIdentityEvent(ctx, "user_1", "a@example.com", "Ana", "")
	require.NoError(t, err)

	user, err := svc.CompleteOnboarding(ctx, "user_1", "selfie-ref", "id-ref")
	require.NoError(t, err)
	assert.True(t, user.HasCompletedOnboarding)
	assert.Equal(t, models.VerificationPending, user.VerificationStatus)
	assert.False(t, user.IsApproved)
	assert.Equal(t, "selfie-ref", user.SelfieRef)
	assert.Equal(t, "id-ref", user.IDRef)

	queue, err := svc.ListOnboarded(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, user.ID, queue[0].ID)
}

func TestCompleteOnboardingCreatesRecordWhenWebhookLags(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(nil, nil)

	user, err := svc.CompleteOnboarding(ctx, "user_late", "selfie-ref", "id-ref")
	require.NoError(t, err)
	assert.Equal(t, "user_late", user.SubjectID)
	assert.True(t, user.HasCompletedOnboarding)
	assert.Equal(t, models.VerificationPending, user.VerificationStatus)

	got, err := svc.GetBySubjectID(ctx, "user_late")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestSetApproval(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(nil, nil)

	created, err := svc.CompleteOnboarding(ctx, "user_1", "selfie-ref", "id-ref")
	require.NoError(t, err)

	approved, err := svc.SetApproval(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	assert.Equal(t, models.VerificationApproved, approved.VerificationStatus)

	// Approving again changes nothing.
	again, err := svc.SetApproval(ctx, created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, approved, again)

	// Rejection keeps the record but clears the submitted images.
	rejected, err := svc.SetApproval(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, rejected.IsApproved)
	assert.Equal(t, models.VerificationRejected, rejected.VerificationStatus)
	assert.Empty(t, rejected.SelfieRef)
	assert.Empty(t, rejected.IDRef)

	still, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, still.VerificationStatus)
}

func TestSetBannedAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(nil, nil)

	user, err := svc.UpsertFromIdentityEvent(ctx, "user_1", "a@example.com", "Ana", "")
	require.NoError(t, err)

	banned, err := svc.SetBanned(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)

	require.NoError(t, svc.Delete(ctx, user.ID))

	_, err = svc.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.GetBySubjectID(ctx, "user_1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserNotFoundErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(nil, nil)

	_, err := svc.SetApproval(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.SetBanned(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrUserNotFound)
}
