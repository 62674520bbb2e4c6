package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/storage"
)

// UserService is the identity directory: one record per identity-provider
// subject id, owning the approval/role/ban flags.
type UserService interface {
	UpsertFromIdentityEvent(ctx context.Context, subjectID, email, name, pseudonym string) (*models.User, error)
	CompleteOnboarding(ctx context.Context, subjectID, selfieRef, idRef string) (*models.User, error)
	GetBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListOnboarded(ctx context.Context) ([]*models.User, error)
	SetApproval(ctx context.Context, id string, approved bool) (*models.User, error)
	SetBanned(ctx context.Context, id string, banned bool) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// GeneratePseudonym derives a stable public alias from the subject id so
// the webhook and dev-mode signup produce the same alias for a user.
func GeneratePseudonym(subjectID string) string {
	h := fnv.New32a()
	h.Write([]byte(subjectID))
	return fmt.Sprintf("User%04d", h.Sum32()%10000)
}

type MemoryUserService struct {
	mu        sync.RWMutex
	users     map[string]*models.User // userID -> record
	bySubject map[string]string       // subjectID -> userID
	files     FileStore
	store     *storage.JSONStore
}

// NewMemoryUserService builds the in-memory directory. store may be nil
// (tests); when set, the directory is loaded from and saved to it.
func NewMemoryUserService(files FileStore, store *storage.JSONStore) *MemoryUserService {
	s := &MemoryUserService{
		users:     make(map[string]*models.User),
		bySubject: make(map[string]string),
		files:     files,
		store:     store,
	}
	if store != nil {
		var snapshot []*models.User
		if err := store.Load(&snapshot); err == nil {
			for _, u := range snapshot {
				s.users[u.ID] = u
				s.bySubject[u.SubjectID] = u.ID
			}
		}
	}
	return s
}

func (s *MemoryUserService) persist() {
	if s.store == nil {
		return
	}
	snapshot := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		snapshot = append(snapshot, u)
	}
	_ = s.store.Save(snapshot)
}

func (s *MemoryUserService) resolveImageURLs(u *models.User) *models.User {
	out := *u
	if s.files != nil {
		if out.SelfieRef != "" {
			out.SelfieURL = s.files.URL(out.SelfieRef)
		}
		if out.IDRef != "" {
			out.IDURL = s.files.URL(out.IDRef)
		}
	}
	return &out
}

func (s *MemoryUserService) UpsertFromIdentityEvent(ctx context.Context, subjectID, email, name, pseudonym string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.bySubject[subjectID]; exists {
		// Only mutable profile fields change on repeat events.
		user := s.users[id]
		if email != "" {
			user.Email = email
		}
		if name != "" {
			user.Name = name
		}
		s.persist()
		return s.resolveImageURLs(user), nil
	}

	if pseudonym == "" {
		pseudonym = GeneratePseudonym(subjectID)
	}
	user := &models.User{
		ID:                 uuid.New().String(),
		SubjectID:          subjectID,
		Email:              email,
		Name:               name,
		Pseudonym:          pseudonym,
		Role:               models.RoleUser,
		VerificationStatus: models.VerificationNone,
		CreatedAt:          time.Now().UTC(),
	}
	s.users[user.ID] = user
	s.bySubject[subjectID] = user.ID
	s.persist()
	return s.resolveImageURLs(user), nil
}

func (s *MemoryUserService) CompleteOnboarding(ctx context.Context, subjectID, selfieRef, idRef string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.bySubject[subjectID]
	if !exists {
		// The provider webhook may not have fired yet; create on the fly.
		user := &models.User{
			ID:                     uuid.New().String(),
			SubjectID:              subjectID,
			Pseudonym:              GeneratePseudonym(subjectID),
			Role:                   models.RoleUser,
			HasCompletedOnboarding: true,
			VerificationStatus:     models.VerificationPending,
			SelfieRef:              selfieRef,
			IDRef:                  idRef,
			CreatedAt:              time.Now().UTC(),
		}
		s.users[user.ID] = user
		s.bySubject[subjectID] = user.ID
		s.persist()
		return s.resolveImageURLs(user), nil
	}

	user := s.users[id]
	user.HasCompletedOnboarding = true
	user.VerificationStatus = models.VerificationPending
	user.SelfieRef = selfieRef
	user.IDRef = idRef
	s.persist()
	return s.resolveImageURLs(user), nil
}

func (s *MemoryUserService) GetBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySubject[subjectID]
	if !exists {
		return nil, ErrUserNotFound
	}
	return s.resolveImageURLs(s.users[id]), nil
}

func (s *MemoryUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	return s.resolveImageURLs(user), nil
}

func (s *MemoryUserService) ListOnboarded(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0)
	for _, u := range s.users {
		if u.HasCompletedOnboarding {
			out = append(out, s.resolveImageURLs(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryUserService) SetApproval(ctx context.Context, id string, approved bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	user.IsApproved = approved
	if approved {
		user.VerificationStatus = models.VerificationApproved
	} else {
		// Rejection keeps the record for later re-review; the submitted
		// verification images are cleared.
		user.VerificationStatus = models.VerificationRejected
		user.SelfieRef = ""
		user.IDRef = ""
	}
	s.persist()
	return s.resolveImageURLs(user), nil
}

func (s *MemoryUserService) SetBanned(ctx context.Context, id string, banned bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	user.IsBanned = banned
	s.persist()
	return s.resolveImageURLs(user), nil
}

func (s *MemoryUserService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return ErrUserNotFound
	}

	delete(s.bySubject, user.SubjectID)
	delete(s.users, id)
	s.persist()
	return nil
}
