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

// MongoDriverPaymentCollection wraps a MongoDB collection for driver payments.
type MongoDriverPaymentCollection struct {
	Collection *mongo.Collection
}

// InsertDriverPayment inserts a driver payment record.
func (c *MongoDriverPaymentCollection) InsertDriverPayment(ctx context.Context, payment *models.DriverPayment) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, payment)
	return err
}

// FindDriverPayments queries driver payments, newest first.
func (c *MongoDriverPaymentCollection) FindDriverPayments(ctx context.Context, filter models.DriverPaymentFilter) ([]models.DriverPayment, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	query := bson.M{}
	if filter.TripID != nil {
		query["trip_id"] = *filter.TripID
	}
	if filter.DriverID != "" {
		query["driver_id"] = filter.DriverID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	payments := []models.DriverPayment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// MarkDriverPaymentPaid moves a PENDIENTE payment to PAGADO.
func (c *MongoDriverPaymentCollection) MarkDriverPaymentPaid(ctx context.Context, id string, at time.Time) (*models.DriverPayment, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var payment models.DriverPayment
	err = c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID, "status": models.DriverPaymentPending},
		bson.M{"$set": bson.M{"status": models.DriverPaymentPaid, "paid_at": at, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&payment)
	if err == nil {
		return &payment, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}
	n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}
