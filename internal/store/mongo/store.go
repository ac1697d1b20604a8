// Package mongo is the MongoDB store backend. Uniqueness of article
// externalId, user email and the developer account is enforced by indexes;
// inserts are upserts with $setOnInsert so the first writer wins.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	articlesCollection = "articles"
	usersCollection    = "users"
)

// Store implements article.Store and user.Store on MongoDB.
type Store struct {
	client   *mongo.Client
	articles *mongo.Collection
	users    *mongo.Collection
	now      func() time.Time
}

var (
	_ article.Store = (*Store)(nil)
	_ user.Store    = (*Store)(nil)
)

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return New(client, database), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		articles: db.Collection(articlesCollection),
		users:    db.Collection(usersCollection),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// DropDatabase removes the store's database. Used to clean up test runs.
func (s *Store) DropDatabase(ctx context.Context) error {
	return s.articles.Database().Drop(ctx)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func (s *Store) InsertIfAbsent(ctx context.Context, a *article.Article) (*article.Article, bool, error) {
	doc := *a
	doc.ID = newID()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	res := s.articles.FindOneAndUpdate(ctx,
		bson.M{"externalId": doc.ExternalID},
		bson.M{"$setOnInsert": doc},
		opts,
	)

	var stored article.Article
	if err := res.Decode(&stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a concurrent upsert; the winner is now readable.
			existing, getErr := s.GetByExternalID(ctx, doc.ExternalID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("upserting article %q: %w", doc.ExternalID, err)
	}
	return &stored, stored.ID == doc.ID, nil
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*article.Article, error) {
	var a article.Article
	err := s.articles.FindOne(ctx, bson.M{"externalId": externalID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, article.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding article %q: %w", externalID, err)
	}
	return &a, nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) ([]article.Article, error) {
	if len(ids) == 0 {
		return []article.Article{}, nil
	}
	cur, err := s.articles.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("finding articles: %w", err)
	}
	var found []article.Article
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decoding articles: %w", err)
	}

	byID := make(map[string]article.Article, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	out := make([]article.Article, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, u *user.User) error {
	now := s.now()
	u.ID = newID()
	u.CreatedAt, u.UpdatedAt = now, now
	initLists(u)

	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// initLists stores empty arrays rather than null so $push and $pull apply.
func initLists(u *user.User) {
	if u.SavedArticles == nil {
		u.SavedArticles = []string{}
	}
	if u.ReadingHistory == nil {
		u.ReadingHistory = []user.HistoryEntry{}
	}
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var u user.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}

func (s *Store) Get(ctx context.Context, id string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindByIdentity(ctx context.Context, email string, provider user.Provider, providerID string) (*user.User, error) {
	or := bson.A{bson.M{"email": email}}
	if providerID != "" {
		or = append(or, bson.M{"provider": provider, "providerId": providerID})
	}
	return s.findUser(ctx, bson.M{"$or": or})
}

func (s *Store) UpsertDeveloper(ctx context.Context, u *user.User) (*user.User, error) {
	now := s.now()
	doc := *u
	doc.ID = newID()
	doc.Provider = user.Developer
	doc.CreatedAt, doc.UpdatedAt = now, now
	initLists(&doc)

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	res := s.users.FindOneAndUpdate(ctx,
		bson.M{"provider": user.Developer},
		bson.M{"$setOnInsert": doc},
		opts,
	)

	var stored user.User
	if err := res.Decode(&stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Either a concurrent upsert won, or another account holds the
			// developer email.
			existing, ferr := s.findUser(ctx, bson.M{"provider": user.Developer})
			if errors.Is(ferr, user.ErrNotFound) {
				return nil, user.ErrDuplicateEmail
			}
			return existing, ferr
		}
		return nil, fmt.Errorf("upserting developer: %w", err)
	}
	return &stored, nil
}

func (s *Store) Patch(ctx context.Context, id string, p user.Patch) (*user.User, error) {
	set := bson.M{"updatedAt": s.now()}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if p.PasswordHash != nil {
		set["password"] = *p.PasswordHash
	}
	if p.IsActive != nil {
		set["isActive"] = *p.IsActive
	}
	if p.LastLogin != nil {
		set["lastLogin"] = *p.LastLogin
	}
	prefs := p.Preferences
	if prefs.Categories != nil {
		set["preferences.categories"] = prefs.Categories
	}
	if prefs.Sources != nil {
		set["preferences.sources"] = prefs.Sources
	}
	if prefs.Languages != nil {
		set["preferences.languages"] = prefs.Languages
	}
	if prefs.Countries != nil {
		set["preferences.countries"] = prefs.Countries
	}
	return s.updateUser(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (s *Store) AddSaved(ctx context.Context, id, articleID string) (*user.User, error) {
	u, err := s.updateUser(ctx,
		bson.M{"_id": id, "savedArticles": bson.M{"$ne": articleID}},
		bson.M{
			"$push": bson.M{"savedArticles": articleID},
			"$set":  bson.M{"updatedAt": s.now()},
		})
	if !errors.Is(err, user.ErrNotFound) {
		return u, err
	}
	// The filter also misses when the id is already saved.
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, user.ErrAlreadySaved
}

func (s *Store) RemoveSaved(ctx context.Context, id, articleID string) (*user.User, error) {
	return s.updateUser(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"savedArticles": articleID},
		"$set":  bson.M{"updatedAt": s.now()},
	})
}

// PushHistory rewrites the history in a single pipeline update: the entry is
// prepended, older entries for the same article are filtered out, and the
// result is trimmed to HistoryLimit.
func (s *Store) PushHistory(ctx context.Context, id string, e user.HistoryEntry) (*user.User, error) {
	entry := bson.M{"articleId": e.ArticleID, "readAt": e.ReadAt}
	rest := bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$readingHistory", bson.A{}}},
		"cond":  bson.M{"$ne": bson.A{"$$this.articleId", bson.M{"$literal": e.ArticleID}}},
	}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"readingHistory": bson.M{"$slice": bson.A{
				bson.M{"$concatArrays": bson.A{bson.A{bson.M{"$literal": entry}}, rest}},
				user.HistoryLimit,
			}},
			"updatedAt": s.now(),
		}}},
	}
	return s.updateUser(ctx, bson.M{"_id": id}, pipeline)
}

// updateUser applies update to the first user matching filter and returns
// the document after the change.
func (s *Store) updateUser(ctx context.Context, filter bson.M, update any) (*user.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u user.User
	err := s.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return &u, nil
}
