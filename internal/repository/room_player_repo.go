package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

// RoomPlayerRepo handles room membership rows
type RoomPlayerRepo interface {
	Add(ctx context.Context, player *model.RoomPlayer) error
	Get(ctx context.Context, roomID, userID string) (*model.RoomPlayer, error)
	// List returns every member in turn order: joinIndex, then userId.
	List(ctx context.Context, roomID string) ([]*model.RoomPlayer, error)
	// ReadyRoster returns the ready members in turn order.
	ReadyRoster(ctx context.Context, roomID string) ([]model.RosterEntry, error)
	Count(ctx context.Context, roomID string) (int, error)
	SetReady(ctx context.Context, roomID, userID string, ready bool) error
	Remove(ctx context.Context, roomID, userID string) (bool, error)
}

type roomPlayerRepo struct {
	collection *mongo.Collection
}

// NewRoomPlayerRepo creates a new membership repository with indexes
func NewRoomPlayerRepo(db *mongo.Database) RoomPlayerRepo {
	repo := &roomPlayerRepo{
		collection: db.Collection("room_players"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{{Key: "roomId", Value: 1}, {Key: "userId", Value: 1}}, true)
	createIndex(ctx, repo.collection, bson.D{
		{Key: "roomId", Value: 1},
		{Key: "ready", Value: 1},
		{Key: "joinIndex", Value: 1},
	}, false)
	return repo
}

// rosterSort is the stable turn order.
var rosterSort = bson.D{{Key: "joinIndex", Value: 1}, {Key: "userId", Value: 1}}

func (r *roomPlayerRepo) Add(ctx context.Context, player *model.RoomPlayer) error {
	_, err := r.collection.InsertOne(ctx, player)
	return err
}

func (r *roomPlayerRepo) Get(ctx context.Context, roomID, userID string) (*model.RoomPlayer, error) {
	var player model.RoomPlayer
	err := r.collection.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID}).Decode(&player)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *roomPlayerRepo) List(ctx context.Context, roomID string) ([]*model.RoomPlayer, error) {
	return r.find(ctx, bson.M{"roomId": roomID})
}

func (r *roomPlayerRepo) ReadyRoster(ctx context.Context, roomID string) ([]model.RosterEntry, error) {
	players, err := r.find(ctx, bson.M{"roomId": roomID, "ready": true})
	if err != nil {
		return nil, err
	}
	roster := make([]model.RosterEntry, len(players))
	for i, p := range players {
		roster[i] = model.RosterEntry{UserID: p.UserID, JoinIndex: p.JoinIndex}
	}
	return roster, nil
}

func (r *roomPlayerRepo) find(ctx context.Context, filter bson.M) ([]*model.RoomPlayer, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(rosterSort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []*model.RoomPlayer
	if err := cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *roomPlayerRepo) Count(ctx context.Context, roomID string) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"roomId": roomID})
	return int(n), err
}

func (r *roomPlayerRepo) SetReady(ctx context.Context, roomID, userID string, ready bool) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"roomId": roomID, "userId": userID},
		bson.M{"$set": bson.M{"ready": ready}},
	)
	return err
}

func (r *roomPlayerRepo) Remove(ctx context.Context, roomID, userID string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"roomId": roomID, "userId": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
