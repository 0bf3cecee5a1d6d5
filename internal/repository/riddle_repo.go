package repository

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

// RiddleRepo handles MongoDB operations for riddle content and categories
type RiddleRepo interface {
	GetByID(ctx context.Context, id string) (*model.Riddle, error)
	GetByHash(ctx context.Context, hash string) (*model.Riddle, error)
	// Insert stores riddle unless one with the same hash exists, and
	// returns the ID that is stored under that hash either way.
	Insert(ctx context.Context, riddle *model.Riddle) (string, error)
	SaveCategory(ctx context.Context, name string) (*model.Category, error)
}

type riddleRepo struct {
	riddles    *mongo.Collection
	categories *mongo.Collection
}

// NewRiddleRepo creates a new riddle repository with indexes
func NewRiddleRepo(db *mongo.Database) RiddleRepo {
	repo := &riddleRepo{
		riddles:    db.Collection("riddles"),
		categories: db.Collection("categories"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.riddles, bson.D{{Key: "hash", Value: 1}}, true)
	createIndex(ctx, repo.categories, bson.D{{Key: "name", Value: 1}}, true)
	return repo
}

func (r *riddleRepo) GetByID(ctx context.Context, id string) (*model.Riddle, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *riddleRepo) GetByHash(ctx context.Context, hash string) (*model.Riddle, error) {
	return r.findOne(ctx, bson.M{"hash": hash})
}

func (r *riddleRepo) findOne(ctx context.Context, filter bson.M) (*model.Riddle, error) {
	var riddle model.Riddle
	err := r.riddles.FindOne(ctx, filter).Decode(&riddle)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &riddle, nil
}

func (r *riddleRepo) Insert(ctx context.Context, riddle *model.Riddle) (string, error) {
	_, err := r.riddles.InsertOne(ctx, riddle)
	if err == nil {
		return riddle.ID, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return "", err
	}
	// Lost a race with another insert of the same content.
	existing, err := r.GetByHash(ctx, riddle.Hash)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", mongo.ErrNoDocuments
	}
	return existing.ID, nil
}

func (r *riddleRepo) SaveCategory(ctx context.Context, name string) (*model.Category, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$setOnInsert": bson.M{"_id": uuid.New().String(), "name": name}}

	var category model.Category
	err := r.categories.FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts).Decode(&category)
	if err != nil {
		return nil, err
	}
	return &category, nil
}
