package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-ops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditCollection is an append-only audit log.
type MongoAuditCollection struct {
	Collection *mongo.Collection
}

// InsertAudit appends an audit entry.
func (c *MongoAuditCollection) InsertAudit(ctx context.Context, entry models.AuditEntry) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := c.Collection.InsertOne(ctx, entry)
	return err
}

// FindAudit returns one page of audit entries, newest first.
func (c *MongoAuditCollection) FindAudit(ctx context.Context, page, limit int) ([]models.AuditEntry, int64, error) {
	if c.Collection == nil {
		return nil, 0, fmt.Errorf("mongo collection is nil")
	}
	page, limit = NormalizePage(page, limit)

	total, err := c.Collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := c.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	entries := []models.AuditEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
