package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/model"
)

type NotificationRepo interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	ListUnread(ctx context.Context, receiverID string) ([]*model.Notification, error)
	// PendingJoinRequest finds the unread join request from requesterID
	// for roomID, if any.
	PendingJoinRequest(ctx context.Context, roomID, requesterID string) (*model.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type notificationDoc struct {
	ID         string    `bson:"_id"`
	CreatorID  string    `bson:"creatorId"`
	ReceiverID string    `bson:"receiverId"`
	Read       bool      `bson:"read"`
	Kind       string    `bson:"kind"`
	RoomID     string    `bson:"roomId"`
	Body       bson.Raw  `bson:"body"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func toNotificationDoc(n *model.Notification) (notificationDoc, error) {
	body, err := bson.Marshal(n.Body)
	if err != nil {
		return notificationDoc{}, fmt.Errorf("encode %s body: %w", n.Kind, err)
	}
	return notificationDoc{
		ID:         n.ID,
		CreatorID:  n.CreatorID,
		ReceiverID: n.ReceiverID,
		Read:       n.Read,
		Kind:       string(n.Body.Kind()),
		RoomID:     model.RoomIDOf(n.Body),
		Body:       body,
		CreatedAt:  n.CreatedAt,
	}, nil
}

func decodeBody[T model.NotificationBody](raw bson.Raw) (model.NotificationBody, error) {
	var body T
	if err := bson.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (d notificationDoc) toModel() (*model.Notification, error) {
	var (
		body model.NotificationBody
		err  error
	)
	switch model.NotificationKind(d.Kind) {
	case model.KindJoinRequest:
		body, err = decodeBody[model.JoinRequested](d.Body)
	case model.KindAccepted:
		body, err = decodeBody[model.JoinAccepted](d.Body)
	case model.KindQuit:
		body, err = decodeBody[model.PlayerQuit](d.Body)
	case model.KindRemoved:
		body, err = decodeBody[model.PlayerRemoved](d.Body)
	case model.KindOwnershipTransfer:
		body, err = decodeBody[model.OwnershipTransferred](d.Body)
	case model.KindRejected:
		body, err = decodeBody[model.JoinRejected](d.Body)
	default:
		return nil, fmt.Errorf("unknown notification kind %q", d.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", d.Kind, err)
	}
	return &model.Notification{
		ID:         d.ID,
		CreatorID:  d.CreatorID,
		ReceiverID: d.ReceiverID,
		Read:       d.Read,
		Kind:       body.Kind(),
		Body:       body,
		CreatedAt:  d.CreatedAt,
	}, nil
}

type notificationRepo struct {
	collection *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) NotificationRepo {
	repo := &notificationRepo{
		collection: db.Collection("notifications"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{
		{Key: "receiverId", Value: 1},
		{Key: "read", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	createIndex(ctx, repo.collection, bson.D{
		{Key: "roomId", Value: 1},
		{Key: "creatorId", Value: 1},
		{Key: "kind", Value: 1},
	}, false)
	return repo
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	doc, err := toNotificationDoc(n)
	if err != nil {
		return err
	}
	_, err = r.collection.InsertOne(ctx, doc)
	return err
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *notificationRepo) PendingJoinRequest(ctx context.Context, roomID, requesterID string) (*model.Notification, error) {
	return r.findOne(ctx, bson.M{
		"roomId":    roomID,
		"creatorId": requesterID,
		"kind":      string(model.KindJoinRequest),
		"read":      false,
	})
}

func (r *notificationRepo) findOne(ctx context.Context, filter bson.M) (*model.Notification, error) {
	var doc notificationDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel()
}

func (r *notificationRepo) ListUnread(ctx context.Context, receiverID string) ([]*model.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"receiverId": receiverID, "read": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*model.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	return err
}
