package mongo

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/newsd/internal/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func articleIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "externalId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("externalId_unique")},
		{Keys: bson.D{{Key: "publishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "source.name", Value: 1}}},
		{Keys: bson.D{{Key: "language", Value: 1}, {Key: "country", Value: 1}}},
	}
}

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{
			Keys: bson.D{{Key: "provider", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("developer_singleton").
				SetPartialFilterExpression(bson.M{"provider": user.Developer}),
		},
		{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "providerId", Value: 1}}},
	}
}

// EnsureIndexes creates the indexes the store relies on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.articles.Indexes().CreateMany(ctx, articleIndexes()); err != nil {
		return fmt.Errorf("creating article indexes: %w", err)
	}
	if _, err := s.users.Indexes().CreateMany(ctx, userIndexes()); err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	return nil
}
