package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

type UserRepo interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetOrCreate returns the user with username, creating it if needed.
	GetOrCreate(ctx context.Context, username string) (*model.User, error)
}

type userRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	repo := &userRepo{
		collection: db.Collection("users"),
	}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "username", Value: 1}}, true)
	return repo
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetOrCreate(ctx context.Context, username string) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$setOnInsert": bson.M{
		"_id":       uuid.New().String(),
		"username":  username,
		"createdAt": time.Now(),
	}}

	var user model.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"username": username}, update, opts).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
