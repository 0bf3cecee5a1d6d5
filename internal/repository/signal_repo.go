package repository

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

// SignalRepo is the durable mailbox behind peer signaling.
type SignalRepo interface {
	Insert(ctx context.Context, signal *model.Signal) error
	// ListForRecipient returns signals addressed to toUserID in roomID
	// created at or after from, oldest first.
	ListForRecipient(ctx context.Context, roomID, toUserID string, from time.Time) ([]*model.Signal, error)
	// Delete removes signal id only if it is addressed to toUserID.
	Delete(ctx context.Context, id, toUserID string) (bool, error)
	// DeleteOlderThan removes every signal created strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// signalDoc keeps the payload as the exact JSON text the sender supplied.
type signalDoc struct {
	ID         string    `bson:"_id"`
	RoomID     string    `bson:"roomId"`
	FromUserID string    `bson:"fromUserId"`
	ToUserID   string    `bson:"toUserId"`
	Type       string    `bson:"type"`
	Payload    string    `bson:"payload"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func toSignalDoc(s *model.Signal) signalDoc {
	return signalDoc{
		ID:         s.ID,
		RoomID:     s.RoomID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Type:       string(s.Type),
		Payload:    string(s.Payload),
		CreatedAt:  s.CreatedAt,
	}
}

func (d signalDoc) toModel() *model.Signal {
	return &model.Signal{
		ID:         d.ID,
		RoomID:     d.RoomID,
		FromUserID: d.FromUserID,
		ToUserID:   d.ToUserID,
		Type:       model.SignalType(d.Type),
		Payload:    json.RawMessage(d.Payload),
		CreatedAt:  d.CreatedAt,
	}
}

type signalRepo struct {
	collection *mongo.Collection
}

// NewSignalRepo creates the signal repository. backstop is the age at
// which MongoDB's TTL monitor removes rows the sweeper missed; zero
// disables it.
func NewSignalRepo(db *mongo.Database, backstop time.Duration) SignalRepo {
	repo := &signalRepo{
		collection: db.Collection("signals"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{
		{Key: "roomId", Value: 1},
		{Key: "toUserId", Value: 1},
		{Key: "createdAt", Value: 1},
	}, false)
	if backstop > 0 {
		createTTLIndex(ctx, repo.collection, "createdAt", backstop)
	}
	return repo
}

func (r *signalRepo) Insert(ctx context.Context, signal *model.Signal) error {
	_, err := r.collection.InsertOne(ctx, toSignalDoc(signal))
	return err
}

func (r *signalRepo) ListForRecipient(ctx context.Context, roomID, toUserID string, from time.Time) ([]*model.Signal, error) {
	filter := bson.M{
		"roomId":    roomID,
		"toUserId":  toUserID,
		"createdAt": bson.M{"$gte": from},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []signalDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	signals := make([]*model.Signal, len(docs))
	for i, d := range docs {
		signals[i] = d.toModel()
	}
	return signals, nil
}

func (r *signalRepo) Delete(ctx context.Context, id, toUserID string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "toUserId": toUserID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *signalRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
