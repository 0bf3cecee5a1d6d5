package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	ListPublic(ctx context.Context) ([]*model.Room, error)
	Delete(ctx context.Context, id string) error
}

type roomRepo struct {
	collection *mongo.Collection
}

func NewRoomRepo(db *mongo.Database) RoomRepo {
	repo := &roomRepo{
		collection: db.Collection("rooms"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{{Key: "code", Value: 1}}, true)
	createIndex(ctx, repo.collection, bson.D{{Key: "visibility", Value: 1}}, false)
	return repo
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	_, err := r.collection.InsertOne(ctx, room)
	return err
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *roomRepo) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *roomRepo) findOne(ctx context.Context, filter bson.M) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, filter).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Room not found
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": room.ID}, room)
	return err
}

func (r *roomRepo) ListPublic(ctx context.Context) ([]*model.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"visibility": model.RoomPublic}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*model.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
