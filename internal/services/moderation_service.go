package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Glaucio24/Redtea/internal/models"
)

// ModerationService coordinates admin actions across the directory, the
// content store, blob storage, the audit log and the identity provider.
// Every privileged method re-reads the caller's directory record and
// checks the admin role on that call; nothing is cached.
type ModerationService struct {
	Users    UserService
	Posts    PostService
	Files    FileStore
	Audit    AuditService
	Identity IdentityProvider
}

func NewModerationService(users UserService, posts PostService, files FileStore, audit AuditService, identity IdentityProvider) *ModerationService {
	if identity == nil {
		identity = NoopIdentityProvider{}
	}
	return &ModerationService{
		Users:    users,
		Posts:    posts,
		Files:    files,
		Audit:    audit,
		Identity: identity,
	}
}

// ResolvePrincipal turns an authenticated subject id into an explicit
// Principal. Handlers call this once per request and pass the value down.
func (m *ModerationService) ResolvePrincipal(ctx context.Context, subjectID string) (models.Principal, error) {
	if subjectID == "" {
		return models.Principal{}, ErrUnauthenticated
	}
	user, err := m.Users.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{
		SubjectID: subjectID,
		UserID:    user.ID,
		Role:      user.Role,
	}, nil
}

// requireAdmin revalidates the caller against the live directory record.
func (m *ModerationService) requireAdmin(ctx context.Context, principal models.Principal) (*models.User, error) {
	if principal.SubjectID == "" {
		return nil, ErrUnauthenticated
	}
	actor, err := m.Users.GetBySubjectID(ctx, principal.SubjectID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}
	return actor, nil
}

func (m *ModerationService) record(ctx context.Context, action models.AdminAction) {
	if m.Audit == nil {
		return
	}
	if err := m.Audit.Record(ctx, action); err != nil {
		log.Printf("[audit] record failed action=%s err=%v", action.ActionType, err)
	}
}

func (m *ModerationService) ApproveUser(ctx context.Context, principal models.Principal, targetID string) (*models.User, error) {
	admin, err := m.requireAdmin(ctx, principal)
	if err != nil {
		return nil, err
	}

	user, err := m.Users.SetApproval(ctx, targetID, true)
	if err != nil {
		return nil, err
	}

	m.record(ctx, models.AdminAction{
		AdminID:      admin.SubjectID,
		ActionType:   models.ActionApproveUser,
		TargetUserID: targetID,
	})
	return user, nil
}

// DenyUser sets the rejected status and clears the submitted verification
// images. The record stays in the directory for later re-review; hard
// deletion is only ever done by WipeUser.
func (m *ModerationService) DenyUser(ctx context.Context, principal models.Principal, targetID string) (*models.User, error) {
	admin, err := m.requireAdmin(ctx, principal)
	if err != nil {
		return nil, err
	}

	target, err := m.Users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	selfieRef, idRef := target.SelfieRef, target.IDRef

	user, err := m.Users.SetApproval(ctx, targetID, false)
	if err != nil {
		return nil, err
	}

	// Blob cleanup is best-effort; the record mutation already happened.
	m.deleteBlob(ctx, selfieRef, "deny selfie")
	m.deleteBlob(ctx, idRef, "deny id")

	m.record(ctx, models.AdminAction{
		AdminID:      admin.SubjectID,
		ActionType:   models.ActionDenyUser,
		TargetUserID: targetID,
	})
	return user, nil
}

func (m *ModerationService) SetBanned(ctx context.Context, principal models.Principal, targetID string, banned bool) (*models.User, error) {
	admin, err := m.requireAdmin(ctx, principal)
	if err != nil {
		return nil, err
	}

	user, err := m.Users.SetBanned(ctx, targetID, banned)
	if err != nil {
		return nil, err
	}

	actionType := models.ActionBanUser
	if !banned {
		actionType = models.ActionUnbanUser
	}
	m.record(ctx, models.AdminAction{
		AdminID:      admin.SubjectID,
		ActionType:   actionType,
		TargetUserID: targetID,
	})
	return user, nil
}

// ReportPost is open to any authenticated user. Repeated reports from the
// same caller keep incrementing the counter.
func (m *ModerationService) ReportPost(ctx context.Context, principal models.Principal, postID string) (*models.Post, error) {
	if principal.SubjectID == "" {
		return nil, ErrUnauthenticated
	}

	post, err := m.Posts.Report(ctx, postID)
	if err != nil {
		return nil, err
	}

	m.record(ctx, models.AdminAction{
		AdminID:      principal.SubjectID,
		ActionType:   models.ActionReportPost,
		TargetPostID: postID,
	})
	return post, nil
}

func (m *ModerationService) DismissReport(ctx context.Context, principal models.Principal, postID string) (*models.Post, error) {
	admin, err := m.requireAdmin(ctx, principal)
	if err != nil {
		return nil, err
	}

	post, err := m.Posts.DismissReport(ctx, postID)
	if err != nil {
		return nil, err
	}

	m.record(ctx, models.AdminAction{
		AdminID:      admin.SubjectID,
		ActionType:   models.ActionDismissReport,
		TargetPostID: postID,
	})
	return post, nil
}

// DeleteOwnPost deletes a post on behalf of its author: image blob first
// (best effort), then the record with its votes and comments.
func (m *ModerationService) DeleteOwnPost(ctx context.Context, principal models.Principal, postID string) error {
	if principal.SubjectID == "" {
		return ErrUnauthenticated
	}

	post, err := m.Posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != principal.UserID {
		return ErrUnauthorized
	}

	m.deleteBlob(ctx, post.FileID, "own post image")
	return m.Posts.Delete(ctx, postID)
}

func (m *ModerationService) DeletePostAsAdmin(ctx context.Context, principal models.Principal, postID string) error {
	admin, err := m.requireAdmin(ctx, principal)
	if err != nil {
		return err
	}

	post, err := m.Posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	m.deleteBlob(ctx, post.FileID, "admin post image")
	if err := m.Posts.Delete(ctx, postID); err != nil {
		return err
	}

	m.record(ctx, models.AdminAction{
		AdminID:      admin.SubjectID,
		ActionType:   models.ActionDeletePost,
		TargetPostID: postID,
	})
	return nil
}

// WipeUser removes a user and everything they own. Admins may wipe
// anyone; a user may wipe themselves.
func (m *ModerationService) WipeUser(ctx context.Context, principal models.Principal, targetID string) (*WipeResult, error) {
	if principal.SubjectID == "" {
		return nil, ErrUnauthenticated
	}
	actor, err := m.Users.GetBySubjectID(ctx, principal.SubjectID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	target, err := m.Users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && actor.ID != target.ID {
		return nil, ErrUnauthorized
	}

	result := m.cascadeDelete(ctx, target, true)

	// A partial wipe is retried by the caller, so only a completed
	// cascade earns an audit entry.
	if !result.Failed {
		m.record(ctx, models.AdminAction{
			AdminID:      actor.SubjectID,
			ActionType:   models.ActionWipeUser,
			TargetUserID: targetID,
		})
	}
	return result, result.Err()
}

// MirrorProviderDeletion handles a user.deleted event from the identity
// provider: the upstream account is already gone, so the cascade skips
// the provider step.
func (m *ModerationService) MirrorProviderDeletion(ctx context.Context, subjectID string) (*WipeResult, error) {
	target, err := m.Users.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	result := m.cascadeDelete(ctx, target, false)

	if !result.Failed {
		m.record(ctx, models.AdminAction{
			AdminID:      "identity_webhook",
			ActionType:   models.ActionWipeUser,
			TargetUserID: target.ID,
		})
	}
	return result, result.Err()
}

func (m *ModerationService) deleteBlob(ctx context.Context, ref, what string) {
	if m.Files == nil || ref == "" {
		return
	}
	if err := m.Files.Delete(ctx, ref); err != nil && err != ErrImageNotFound {
		log.Printf("[moderation] blob delete failed (%s) ref=%s err=%v", what, ref, err)
	}
}

// WipeStep is one side-effecting step of the wipe saga and its outcome.
type WipeStep struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// WipeResult reports which saga steps succeeded and which failed. Blob
// deletions are best-effort and never fail the saga; record and provider
// deletions do.
type WipeResult struct {
	Steps  []WipeStep `json:"steps"`
	Failed bool       `json:"failed"`
}

func (r *WipeResult) step(name string, err error, fatal bool) {
	s := WipeStep{Name: name}
	if err != nil {
		s.Error = err.Error()
		if fatal {
			r.Failed = true
		}
		log.Printf("[wipe] step=%s err=%v", name, err)
	}
	r.Steps = append(r.Steps, s)
}

func (r *WipeResult) Err() error {
	if !r.Failed {
		return nil
	}
	for _, s := range r.Steps {
		if s.Error != "" {
			return fmt.Errorf("wipe incomplete: %s: %s", s.Name, s.Error)
		}
	}
	return errors.New("wipe incomplete")
}

// cascadeDelete executes the wipe as an ordered plan with per-step
// failure capture: post blobs, verification blobs, owned posts (each
// taking its votes and comments with it), stray comments, the directory
// record, and finally the provider account. Blob failures are captured
// but do not abort the remaining steps.
func (m *ModerationService) cascadeDelete(ctx context.Context, target *models.User, includeProvider bool) *WipeResult {
	result := &WipeResult{}

	posts, err := m.Posts.ListByUser(ctx, target.ID)
	result.step("collect_posts", err, true)
	if err != nil {
		return result
	}

	for _, p := range posts {
		if p.FileID == "" || m.Files == nil {
			continue
		}
		blobErr := m.Files.Delete(ctx, p.FileID)
		if blobErr == ErrImageNotFound {
			blobErr = nil
		}
		result.step("delete_post_image:"+p.ID, blobErr, false)
	}

	for _, ref := range []string{target.SelfieRef, target.IDRef} {
		if ref == "" || m.Files == nil {
			continue
		}
		blobErr := m.Files.Delete(ctx, ref)
		if blobErr == ErrImageNotFound {
			blobErr = nil
		}
		result.step("delete_verification_image", blobErr, false)
	}

	for _, p := range posts {
		result.step("delete_post:"+p.ID, m.Posts.Delete(ctx, p.ID), true)
	}

	result.step("delete_comments", m.Posts.DeleteCommentsByUser(ctx, target.ID), true)
	result.step("delete_user_record", m.Users.Delete(ctx, target.ID), true)

	if includeProvider {
		// Runs last so a provider outage cannot strand a half-deleted
		// directory record behind a dead upstream account.
		result.step("delete_provider_account", m.Identity.DeleteAccount(ctx, target.SubjectID), true)
	}

	return result
}
