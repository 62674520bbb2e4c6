package services

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Glaucio24/Redtea/internal/models"
)

type MongoPostService struct {
	client      *mongo.Client
	db          *mongo.Database
	postsCol    *mongo.Collection
	commentsCol *mongo.Collection
	votesCol    *mongo.Collection
	users       UserService
	files       FileStore
}

func NewMongoPostService(ctx context.Context, mongoURI, dbName string, users UserService, files FileStore) (*MongoPostService, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	posts := db.Collection("posts")
	comments := db.Collection("comments")
	votes := db.Collection("votes")

	// Best-effort indexes.
	_, _ = posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_reported", Value: 1}}},
	})
	_, _ = comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	_, _ = votes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "voter_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})

	log.Printf("MongoDB content connected: db=%s", dbName)
	return &MongoPostService{
		client:      client,
		db:          db,
		postsCol:    posts,
		commentsCol: comments,
		votesCol:    votes,
		users:       users,
		files:       files,
	}, nil
}

func (s *MongoPostService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// enrich resolves image URL, author pseudonym and replies count for a
// batch of posts in one comments pass.
func (s *MongoPostService) enrich(ctx context.Context, posts []*models.Post) ([]*models.Post, error) {
	if len(posts) == 0 {
		return posts, nil
	}

	postIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}

	counts := make(map[string]int)
	cur, err := s.commentsCol.Find(
		ctx,
		bson.M{"post_id": bson.M{"$in": postIDs}},
		options.Find().SetProjection(bson.M{"post_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d struct {
			PostID string `bson:"post_id"`
		}
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		counts[d.PostID]++
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	pseudonyms := make(map[string]string)
	for _, p := range posts {
		p.RepliesCount = counts[p.ID]
		if s.files != nil && p.FileID != "" {
			p.ImageURL = s.files.URL(p.FileID)
		}
		if _, seen := pseudonyms[p.UserID]; !seen {
			pseudonyms[p.UserID] = "Anonymous"
			if s.users != nil {
				if creator, err := s.users.GetByID(ctx, p.UserID); err == nil && creator.Pseudonym != "" {
					pseudonyms[p.UserID] = creator.Pseudonym
				}
			}
		}
		p.CreatorPseudonym = pseudonyms[p.UserID]
	}
	return posts, nil
}

func (s *MongoPostService) enrichOne(ctx context.Context, post *models.Post) (*models.Post, error) {
	out, err := s.enrich(ctx, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *MongoPostService) Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	post := models.Post{
		ID:        uuid.New().String(),
		UserID:    authorID,
		Name:      req.Name,
		Age:       req.Age,
		City:      req.City,
		Text:      req.Text,
		FileID:    req.FileID,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.postsCol.InsertOne(ctx, post); err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, &post)
}

func (s *MongoPostService) GetByID(ctx context.Context, id string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var post models.Post
	if err := s.postsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return s.enrichOne(ctx, &post)
}

func (s *MongoPostService) listPosts(ctx context.Context, filter bson.M) ([]*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := s.postsCol.Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Post, 0)
	for cur.Next(ctx) {
		var p models.Post
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return s.enrich(ctx, out)
}

func (s *MongoPostService) Feed(ctx context.Context) ([]*models.Post, error) {
	return s.listPosts(ctx, bson.M{})
}

func (s *MongoPostService) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.listPosts(ctx, bson.M{"user_id": userID})
}

func (s *MongoPostService) ListReported(ctx context.Context) ([]*models.Post, error) {
	return s.listPosts(ctx, bson.M{"is_reported": true})
}

func (s *MongoPostService) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var post models.Post
	if err := s.postsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrPostNotFound
		}
		return err
	}

	if _, err := s.votesCol.DeleteMany(ctx, bson.M{"post_id": id}); err != nil {
		return err
	}
	if _, err := s.commentsCol.DeleteMany(ctx, bson.M{"post_id": id}); err != nil {
		return err
	}
	if _, err := s.postsCol.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	return nil
}

// CastVote removes the voter's existing entry, then inserts the new
// choice unless it is empty. The counter adjustments ride a single posts
// update so concurrent voters serialize on the store's per-document
// write path.
func (s *MongoPostService) CastVote(ctx context.Context, postID, voterID, choice string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var post models.Post
	if err := s.postsCol.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	inc := bson.M{}

	var prior models.Vote
	err := s.votesCol.FindOneAndDelete(ctx, bson.M{"post_id": postID, "voter_id": voterID}).Decode(&prior)
	if err == nil {
		if prior.Choice == models.VoteGreen {
			inc["green_flags"] = -1
		} else {
			inc["red_flags"] = -1
		}
	} else if err != mongo.ErrNoDocuments {
		return nil, err
	}

	if choice != "" {
		vote := models.Vote{
			ID:      uuid.New().String(),
			PostID:  postID,
			VoterID: voterID,
			Choice:  choice,
		}
		if _, err := s.votesCol.InsertOne(ctx, vote); err != nil {
			return nil, err
		}
		key := "red_flags"
		if choice == models.VoteGreen {
			key = "green_flags"
		}
		if v, ok := inc[key]; ok {
			inc[key] = v.(int) + 1
		} else {
			inc[key] = 1
		}
	}

	// Drop zero-net adjustments (same choice re-cast).
	for k, v := range inc {
		if v.(int) == 0 {
			delete(inc, k)
		}
	}

	if len(inc) == 0 {
		return s.enrichOne(ctx, &post)
	}

	res := s.postsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID},
		bson.M{"$inc": inc},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var updated models.Post
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return s.enrichOne(ctx, &updated)
}

func (s *MongoPostService) VotersForPost(ctx context.Context, postID string) ([]*models.Vote, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if err := s.postsCol.FindOne(ctx, bson.M{"_id": postID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	cur, err := s.votesCol.Find(ctx, bson.M{"post_id": postID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Vote, 0)
	for cur.Next(ctx) {
		var v models.Vote
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoPostService) Report(ctx context.Context, postID string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res := s.postsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID},
		bson.M{
			"$inc": bson.M{"report_count": 1},
			"$set": bson.M{"is_reported": true},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Post
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return s.enrichOne(ctx, &updated)
}

func (s *MongoPostService) DismissReport(ctx context.Context, postID string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res := s.postsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID},
		bson.M{"$set": bson.M{"is_reported": false, "report_count": 0}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Post
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return s.enrichOne(ctx, &updated)
}

func (s *MongoPostService) AddComment(ctx context.Context, postID, userID, content string) (*models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if err := s.postsCol.FindOne(ctx, bson.M{"_id": postID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.commentsCol.InsertOne(ctx, comment); err != nil {
		return nil, err
	}

	comment.UserPseudonym = s.pseudonymFor(ctx, userID)
	return &comment, nil
}

func (s *MongoPostService) pseudonymFor(ctx context.Context, userID string) string {
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, userID); err == nil && u.Pseudonym != "" {
			return u.Pseudonym
		}
	}
	return "Anonymous"
}

func (s *MongoPostService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if err := s.postsCol.FindOne(ctx, bson.M{"_id": postID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	cur, err := s.commentsCol.Find(
		ctx,
		bson.M{"post_id": postID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Comment, 0)
	pseudonyms := make(map[string]string)
	for cur.Next(ctx) {
		var c models.Comment
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		if _, seen := pseudonyms[c.UserID]; !seen {
			pseudonyms[c.UserID] = s.pseudonymFor(ctx, c.UserID)
		}
		c.UserPseudonym = pseudonyms[c.UserID]
		out = append(out, &c)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoPostService) DeleteCommentsByUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.commentsCol.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
