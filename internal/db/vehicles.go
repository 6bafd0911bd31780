package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-ops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleCollection wraps a MongoDB collection for vehicles.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// SetVehicleStatus updates the availability of a vehicle.
func (c *MongoVehicleCollection) SetVehicleStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid vehicle ID: %w", err)
	}

	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
