package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Glaucio24/Redtea/internal/models"
)

// AuditService is the append-only admin action log. Write-only from the
// moderation engine's perspective; List exists for the admin dashboard.
type AuditService interface {
	Record(ctx context.Context, action models.AdminAction) error
	List(ctx context.Context) ([]*models.AdminAction, error)
}

type MemoryAuditService struct {
	mu      sync.RWMutex
	actions []*models.AdminAction
}

func NewMemoryAuditService() *MemoryAuditService {
	return &MemoryAuditService{actions: make([]*models.AdminAction, 0)}
}

func (s *MemoryAuditService) Record(ctx context.Context, action models.AdminAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now().UTC()
	}
	s.actions = append(s.actions, &action)
	return nil
}

func (s *MemoryAuditService) List(ctx context.Context) ([]*models.AdminAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AdminAction, len(s.actions))
	copy(out, s.actions)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
