package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

// RoomPlaytimeRepo handles MongoDB operations for room playtimes
type RoomPlaytimeRepo interface {
	Create(ctx context.Context, playtime *model.RoomPlaytime) error
	GetByID(ctx context.Context, id string) (*model.RoomPlaytime, error)
	// Update is a version-conditional replace; see PlaytimeRepo.Update.
	Update(ctx context.Context, playtime *model.RoomPlaytime) error
	// ListExpiredTurns returns active, uncompleted playtimes whose turn
	// deadline is at or before now.
	ListExpiredTurns(ctx context.Context, now time.Time, limit int) ([]*model.RoomPlaytime, error)
}

type roomPlaytimeRepo struct {
	collection *mongo.Collection
}

// NewRoomPlaytimeRepo creates a new room playtime repository with indexes
func NewRoomPlaytimeRepo(db *mongo.Database) RoomPlaytimeRepo {
	repo := &roomPlaytimeRepo{
		collection: db.Collection("room_playtimes"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{{Key: "roomId", Value: 1}}, false)
	createIndex(ctx, repo.collection, bson.D{
		{Key: "playing", Value: 1},
		{Key: "completed", Value: 1},
		{Key: "turnDeadline", Value: 1},
	}, false)
	return repo
}

func (r *roomPlaytimeRepo) Create(ctx context.Context, playtime *model.RoomPlaytime) error {
	now := time.Now()
	playtime.CreatedAt = now
	playtime.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, playtime)
	return err
}

func (r *roomPlaytimeRepo) GetByID(ctx context.Context, id string) (*model.RoomPlaytime, error) {
	var playtime model.RoomPlaytime
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&playtime)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &playtime, nil
}

func (r *roomPlaytimeRepo) Update(ctx context.Context, playtime *model.RoomPlaytime) error {
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

func (r *roomPlaytimeRepo) ListExpiredTurns(ctx context.Context, now time.Time, limit int) ([]*model.RoomPlaytime, error) {
	filter := bson.M{
		"playing":      true,
		"completed":    false,
		"turnDeadline": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "turnDeadline", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var playtimes []*model.RoomPlaytime
	if err := cursor.All(ctx, &playtimes); err != nil {
		return nil, err
	}
	return playtimes, nil
}
