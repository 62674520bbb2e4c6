package services

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Glaucio24/Redtea/internal/models"
)

type MongoAuditService struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

func NewMongoAuditService(ctx context.Context, mongoURI, dbName string) (*MongoAuditService, error) {
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
	col := db.Collection("admin_actions")

	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})

	return &MongoAuditService{client: client, db: db, col: col}, nil
}

func (s *MongoAuditService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoAuditService) Record(ctx context.Context, action models.AdminAction) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, action)
	return err
}

func (s *MongoAuditService) List(ctx context.Context) ([]*models.AdminAction, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := s.col.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.AdminAction, 0)
	for cur.Next(ctx) {
		var a models.AdminAction
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
