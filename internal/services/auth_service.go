package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Glaucio24/Redtea/internal/models"
)

// AuthService is the dev-mode stand-in for the external identity
// provider: local email/password credentials whose subject ids feed the
// same directory upsert path the provider webhook uses.
type AuthService struct {
	mu      sync.RWMutex
	byEmail map[string]*devCredential
	users   UserService
}

type devCredential struct {
	SubjectID    string
	PasswordHash string
}

func NewAuthService(users UserService) *AuthService {
	return &AuthService{
		byEmail: make(map[string]*devCredential),
		users:   users,
	}
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[req.Email]; exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	subjectID := "dev|" + uuid.New().String()
	user, err := s.users.UpsertFromIdentityEvent(ctx, subjectID, req.Email, req.Name, "")
	if err != nil {
		return nil, err
	}

	s.byEmail[req.Email] = &devCredential{
		SubjectID:    subjectID,
		PasswordHash: string(hashedPassword),
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	s.mu.RLock()
	cred, exists := s.byEmail[req.Email]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return s.users.GetBySubjectID(ctx, cred.SubjectID)
}
