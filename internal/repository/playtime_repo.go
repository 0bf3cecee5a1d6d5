package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

// PlaytimeRepo handles MongoDB operations for solo playtimes
type PlaytimeRepo interface {
	Create(ctx context.Context, playtime *model.Playtime) error
	GetByID(ctx context.Context, id string) (*model.Playtime, error)
	// Update replaces the stored playtime only if its version still equals
	// playtime.Version, then bumps playtime.Version. Returns
	// ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, playtime *model.Playtime) error
	ListPlayingByUser(ctx context.Context, userID string) ([]*model.Playtime, error)
}

type playtimeRepo struct {
	collection *mongo.Collection
}

// NewPlaytimeRepo creates a new solo playtime repository with indexes
func NewPlaytimeRepo(db *mongo.Database) PlaytimeRepo {
	repo := &playtimeRepo{
		collection: db.Collection("playtimes"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{{Key: "userId", Value: 1}, {Key: "playing", Value: 1}}, false)
	createIndex(ctx, repo.collection, bson.D{{Key: "current", Value: 1}}, false)
	return repo
}

func (r *playtimeRepo) Create(ctx context.Context, playtime *model.Playtime) error {
	now := time.Now()
	playtime.CreatedAt = now
	playtime.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, playtime)
	return err
}

func (r *playtimeRepo) GetByID(ctx context.Context, id string) (*model.Playtime, error) {
	var playtime model.Playtime
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&playtime)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &playtime, nil
}

func (r *playtimeRepo) Update(ctx context.Context, playtime *model.Playtime) error {
	read := playtime.Version
	playtime.Version = read + 1
	playtime.UpdatedAt = time.Now()

	res, err := r.collection.ReplaceOne(ctx, versionFilter(playtime.ID, read), playtime)
	if err != nil {
		playtime.Version = read
		return err
	}
	if res.MatchedCount == 0 {
		playtime.Version = read
		return ErrVersionConflict
	}
	return nil
}

func (r *playtimeRepo) ListPlayingByUser(ctx context.Context, userID string) ([]*model.Playtime, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID, "playing": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var playtimes []*model.Playtime
	if err := cursor.All(ctx, &playtimes); err != nil {
		return nil, err
	}
	return playtimes, nil
}
