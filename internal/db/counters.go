package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Counters hands out integer ids from per-sequence counter documents.
type Counters struct {
	Collection *mongo.Collection
}

// Next atomically increments and returns the named sequence.
func (c *Counters) Next(ctx context.Context, name string) (int64, error) {
	if c.Collection == nil {
		return 0, fmt.Errorf("mongo collection is nil")
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return doc.Seq, nil
}
