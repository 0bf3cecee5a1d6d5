package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict is returned by conditional writes when the stored
// document no longer carries the version the caller read.
var ErrVersionConflict = errors.New("version conflict")

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Printf("Warning: failed to create index on %s: %v", coll.Name(), err)
	}
}

func createTTLIndex(ctx context.Context, coll *mongo.Collection, field string, after time.Duration) {
	opts := options.Index().SetExpireAfterSeconds(int32(after / time.Second))
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: opts})
	if err != nil {
		log.Printf("Warning: failed to create TTL index on %s.%s: %v", coll.Name(), field, err)
	}
}

// versionFilter matches a document by id only while it still has the
// given version.
func versionFilter(id string, version int64) bson.M {
	return bson.M{"_id": id, "version": version}
}
