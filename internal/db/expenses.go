package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-ops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoExpenseCollection wraps a MongoDB collection for trip expenses.
type MongoExpenseCollection struct {
	Collection *mongo.Collection
}

// InsertExpense inserts an expense record into the collection.
func (c *MongoExpenseCollection) InsertExpense(ctx context.Context, expense *models.Expense) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	expense.ID = primitive.NewObjectID()
	expense.CreatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, expense)
	return err
}

// FindExpensesByTrip returns the expenses of a trip, oldest first.
func (c *MongoExpenseCollection) FindExpensesByTrip(ctx context.Context, tripID int64) ([]models.Expense, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"trip_id": tripID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	expenses := []models.Expense{}
	if err := cursor.All(ctx, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}
