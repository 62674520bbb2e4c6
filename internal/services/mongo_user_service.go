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

// mongoOpTimeout bounds every store operation.
const mongoOpTimeout = 10 * time.Second

type MongoUserService struct {
	client   *mongo.Client
	db       *mongo.Database
	usersCol *mongo.Collection
	files    FileStore
}

func NewMongoUserService(ctx context.Context, mongoURI, dbName string, files FileStore) (*MongoUserService, error) {
	// Atlas occasionally fails TLS negotiation in some environments unless we force TLS 1.2.
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
	col := db.Collection("users")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "subject_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verification_status", Value: 1}}},
		{Keys: bson.D{{Key: "is_approved", Value: 1}}},
	})

	log.Printf("MongoDB users connected: db=%s", dbName)
	return &MongoUserService{
		client:   client,
		db:       db,
		usersCol: col,
		files:    files,
	}, nil
}

func (s *MongoUserService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoUserService) resolveImageURLs(u *models.User) *models.User {
	if s.files != nil {
		if u.SelfieRef != "" {
			u.SelfieURL = s.files.URL(u.SelfieRef)
		}
		if u.IDRef != "" {
			u.IDURL = s.files.URL(u.IDRef)
		}
	}
	return u
}

func (s *MongoUserService) UpsertFromIdentityEvent(ctx context.Context, subjectID, email, name, pseudonym string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var existing models.User
	err := s.usersCol.FindOne(ctx, bson.M{"subject_id": subjectID}).Decode(&existing)
	if err == nil {
		set := bson.M{}
		if email != "" {
			set["email"] = email
			existing.Email = email
		}
		if name != "" {
			set["name"] = name
			existing.Name = name
		}
		if len(set) > 0 {
			if _, err := s.usersCol.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": set}); err != nil {
				return nil, err
			}
		}
		return s.resolveImageURLs(&existing), nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	if pseudonym == "" {
		pseudonym = GeneratePseudonym(subjectID)
	}
	user := models.User{
		ID:                 uuid.New().String(),
		SubjectID:          subjectID,
		Email:              email,
		Name:               name,
		Pseudonym:          pseudonym,
		Role:               models.RoleUser,
		VerificationStatus: models.VerificationNone,
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := s.usersCol.InsertOne(ctx, user); err != nil {
		// If a race created it, fetch again.
		var retry models.User
		if err2 := s.usersCol.FindOne(ctx, bson.M{"subject_id": subjectID}).Decode(&retry); err2 == nil {
			return s.resolveImageURLs(&retry), nil
		}
		return nil, err
	}
	return s.resolveImageURLs(&user), nil
}

func (s *MongoUserService) CompleteOnboarding(ctx context.Context, subjectID, selfieRef, idRef string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res := s.usersCol.FindOneAndUpdate(
		ctx,
		bson.M{"subject_id": subjectID},
		bson.M{"$set": bson.M{
			"has_completed_onboarding": true,
			"verification_status":      models.VerificationPending,
			"selfie_ref":               selfieRef,
			"id_ref":                   idRef,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.User
	if err := res.Decode(&updated); err != nil {
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
		// The provider webhook may not have fired yet; create on the fly.
		updated = models.User{
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
		if _, err := s.usersCol.InsertOne(ctx, updated); err != nil {
			return nil, err
		}
	}
	return s.resolveImageURLs(&updated), nil
}

func (s *MongoUserService) GetBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var user models.User
	if err := s.usersCol.FindOne(ctx, bson.M{"subject_id": subjectID}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.resolveImageURLs(&user), nil
}

func (s *MongoUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var user models.User
	if err := s.usersCol.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.resolveImageURLs(&user), nil
}

func (s *MongoUserService) ListOnboarded(ctx context.Context) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := s.usersCol.Find(
		ctx,
		bson.M{"has_completed_onboarding": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.User, 0)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, s.resolveImageURLs(&u))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoUserService) SetApproval(ctx context.Context, id string, approved bool) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	set := bson.M{"is_approved": approved}
	if approved {
		set["verification_status"] = models.VerificationApproved
	} else {
		set["verification_status"] = models.VerificationRejected
		set["selfie_ref"] = ""
		set["id_ref"] = ""
	}

	res := s.usersCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.User
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.resolveImageURLs(&updated), nil
}

func (s *MongoUserService) SetBanned(ctx context.Context, id string, banned bool) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res := s.usersCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_banned": banned}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.User
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.resolveImageURLs(&updated), nil
}

func (s *MongoUserService) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.usersCol.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
