package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/storage"
)

// PostService is the content store: posts, their comments, and the
// per-post vote tally. Counters on a post always equal the count of vote
// records by choice; CastVote is the only path that touches either.
type PostService interface {
	Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Feed(ctx context.Context) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Post, error)
	ListReported(ctx context.Context) ([]*models.Post, error)
	Delete(ctx context.Context, id string) error

	CastVote(ctx context.Context, postID, voterID, choice string) (*models.Post, error)
	VotersForPost(ctx context.Context, postID string) ([]*models.Vote, error)

	Report(ctx context.Context, postID string) (*models.Post, error)
	DismissReport(ctx context.Context, postID string) (*models.Post, error)

	AddComment(ctx context.Context, postID, userID, content string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*models.Comment, error)
	DeleteCommentsByUser(ctx context.Context, userID string) error
}

type MemoryPostService struct {
	mu       sync.RWMutex
	posts    map[string]*models.Post
	comments map[string]*models.Comment
	votes    map[string]*models.Vote
	users    UserService
	files    FileStore
	store    *storage.JSONStore
}

type memoryContentSnapshot struct {
	Posts    []*models.Post    `json:"posts"`
	Comments []*models.Comment `json:"comments"`
	Votes    []*models.Vote    `json:"votes"`
}

// NewMemoryPostService builds the in-memory content store. store may be
// nil (tests); when set, content is loaded from and saved to it.
func NewMemoryPostService(users UserService, files FileStore, store *storage.JSONStore) *MemoryPostService {
	s := &MemoryPostService{
		posts:    make(map[string]*models.Post),
		comments: make(map[string]*models.Comment),
		votes:    make(map[string]*models.Vote),
		users:    users,
		files:    files,
		store:    store,
	}
	if store != nil {
		var snapshot memoryContentSnapshot
		if err := store.Load(&snapshot); err == nil {
			for _, p := range snapshot.Posts {
				s.posts[p.ID] = p
			}
			for _, c := range snapshot.Comments {
				s.comments[c.ID] = c
			}
			for _, v := range snapshot.Votes {
				s.votes[v.ID] = v
			}
		}
	}
	return s
}

func (s *MemoryPostService) persist() {
	if s.store == nil {
		return
	}
	snapshot := memoryContentSnapshot{
		Posts:    make([]*models.Post, 0, len(s.posts)),
		Comments: make([]*models.Comment, 0, len(s.comments)),
		Votes:    make([]*models.Vote, 0, len(s.votes)),
	}
	for _, p := range s.posts {
		snapshot.Posts = append(snapshot.Posts, p)
	}
	for _, c := range s.comments {
		snapshot.Comments = append(snapshot.Comments, c)
	}
	for _, v := range s.votes {
		snapshot.Votes = append(snapshot.Votes, v)
	}
	_ = s.store.Save(snapshot)
}

// enrich resolves the derived read-time fields. Caller holds at least a
// read lock.
func (s *MemoryPostService) enrich(ctx context.Context, p *models.Post) *models.Post {
	out := *p
	if s.files != nil && out.FileID != "" {
		out.ImageURL = s.files.URL(out.FileID)
	}
	out.CreatorPseudonym = "Anonymous"
	if s.users != nil {
		if creator, err := s.users.GetByID(ctx, out.UserID); err == nil && creator.Pseudonym != "" {
			out.CreatorPseudonym = creator.Pseudonym
		}
	}
	for _, c := range s.comments {
		if c.PostID == p.ID {
			out.RepliesCount++
		}
	}
	return &out
}

func (s *MemoryPostService) Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post := &models.Post{
		ID:        uuid.New().String(),
		UserID:    authorID,
		Name:      req.Name,
		Age:       req.Age,
		City:      req.City,
		Text:      req.Text,
		FileID:    req.FileID,
		CreatedAt: time.Now().UTC(),
	}

	s.posts[post.ID] = post
	s.persist()
	return s.enrich(ctx, post), nil
}

func (s *MemoryPostService) GetByID(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, ErrPostNotFound
	}
	return s.enrich(ctx, post), nil
}

func (s *MemoryPostService) list(ctx context.Context, keep func(*models.Post) bool) []*models.Post {
	out := make([]*models.Post, 0)
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, s.enrich(ctx, p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryPostService) Feed(ctx context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(ctx, func(*models.Post) bool { return true }), nil
}

func (s *MemoryPostService) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(ctx, func(p *models.Post) bool { return p.UserID == userID }), nil
}

func (s *MemoryPostService) ListReported(ctx context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(ctx, func(p *models.Post) bool { return p.IsReported }), nil
}

// Delete removes the post record plus its votes and comments. Blob
// cleanup belongs to the caller, which knows whether it is best-effort.
func (s *MemoryPostService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[id]; !exists {
		return ErrPostNotFound
	}

	for voteID, v := range s.votes {
		if v.PostID == id {
			delete(s.votes, voteID)
		}
	}
	for commentID, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, commentID)
		}
	}
	delete(s.posts, id)
	s.persist()
	return nil
}

// CastVote removes the voter's existing entry for the post, then inserts
// the new choice unless it is empty. A voter therefore holds at most one
// active choice per post, and an empty choice is the retraction path.
func (s *MemoryPostService) CastVote(ctx context.Context, postID, voterID, choice string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return nil, ErrPostNotFound
	}

	for voteID, v := range s.votes {
		if v.PostID == postID && v.VoterID == voterID {
			if v.Choice == models.VoteGreen {
				post.GreenFlags--
			} else {
				post.RedFlags--
			}
			delete(s.votes, voteID)
			break
		}
	}

	if choice != "" {
		vote := &models.Vote{
			ID:      uuid.New().String(),
			PostID:  postID,
			VoterID: voterID,
			Choice:  choice,
		}
		s.votes[vote.ID] = vote
		if choice == models.VoteGreen {
			post.GreenFlags++
		} else {
			post.RedFlags++
		}
	}

	s.persist()
	return s.enrich(ctx, post), nil
}

func (s *MemoryPostService) VotersForPost(ctx context.Context, postID string) ([]*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.posts[postID]; !exists {
		return nil, ErrPostNotFound
	}

	out := make([]*models.Vote, 0)
	for _, v := range s.votes {
		if v.PostID == postID {
			vote := *v
			out = append(out, &vote)
		}
	}
	return out, nil
}

func (s *MemoryPostService) Report(ctx context.Context, postID string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return nil, ErrPostNotFound
	}

	post.ReportCount++
	post.IsReported = true
	s.persist()
	return s.enrich(ctx, post), nil
}

func (s *MemoryPostService) DismissReport(ctx context.Context, postID string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return nil, ErrPostNotFound
	}

	post.ReportCount = 0
	post.IsReported = false
	s.persist()
	return s.enrich(ctx, post), nil
}

func (s *MemoryPostService) AddComment(ctx context.Context, postID, userID, content string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[postID]; !exists {
		return nil, ErrPostNotFound
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.comments[comment.ID] = comment
	s.persist()

	out := *comment
	out.UserPseudonym = s.pseudonymFor(ctx, userID)
	return &out, nil
}

func (s *MemoryPostService) pseudonymFor(ctx context.Context, userID string) string {
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, userID); err == nil && u.Pseudonym != "" {
			return u.Pseudonym
		}
	}
	return "Anonymous"
}

func (s *MemoryPostService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.posts[postID]; !exists {
		return nil, ErrPostNotFound
	}

	out := make([]*models.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			comment := *c
			comment.UserPseudonym = s.pseudonymFor(ctx, c.UserID)
			out = append(out, &comment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryPostService) DeleteCommentsByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for commentID, c := range s.comments {
		if c.UserID == userID {
			delete(s.comments, commentID)
		}
	}
	s.persist()
	return nil
}
