package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ukydev/fleet-ops/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// MongoTripCollection wraps a MongoDB collection for trip operations.
type MongoTripCollection struct {
	Collection *mongo.Collection
	Counters   *Counters
}

// InsertTrip assigns the next trip id and inserts the trip.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	id, err := c.Counters.Next(ctx, TripsCollection)
	if err != nil {
		return err
	}
	now := time.Now()
	trip.ID = id
	trip.CreatedAt = now
	trip.UpdatedAt = now
	_, err = c.Collection.InsertOne(ctx, trip)
	return err
}

// FindTripByID finds a trip by its ID.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id int64) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var trip models.Trip
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip); err != nil {
		return nil, notFound(err)
	}
	return &trip, nil
}

// FindTrips returns one page of trips matching the filter plus the total match count.
func (c *MongoTripCollection) FindTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, int64, error) {
	if c.Collection == nil {
		return nil, 0, fmt.Errorf("mongo collection is nil")
	}
	page, limit := NormalizePage(filter.Page, filter.Limit)
	query := tripQuery(filter)

	total, err := c.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "departure_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	trips := []models.Trip{}
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, 0, err
	}
	return trips, total, nil
}

// TransitionTrip changes the trip state with a compare-and-set on the current status.
func (c *MongoTripCollection) TransitionTrip(ctx context.Context, id int64, from []models.TripStatus, set TripUpdate) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	fields := bson.M{"status": set.Status, "updated_at": time.Now()}
	if set.ActualArrival != nil {
		fields["actual_arrival"] = *set.ActualArrival
	}
	if set.ActualKm != nil {
		fields["actual_km"] = *set.ActualKm
	}

	var trip models.Trip
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&trip)
	if err != nil {
		return nil, c.conditionalMiss(ctx, id, err)
	}
	return &trip, nil
}

// ApplyClientPayment stores a new paid amount with optimistic concurrency on the previous amount.
func (c *MongoTripCollection) ApplyClientPayment(ctx context.Context, id int64, previous, paid float64, status models.PaymentStatus) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var trip models.Trip
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "amount_paid": previous},
		bson.M{"$set": bson.M{
			"amount_paid":    paid,
			"payment_status": status,
			"updated_at":     time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&trip)
	if err != nil {
		return nil, c.conditionalMiss(ctx, id, err)
	}
	return &trip, nil
}

// conditionalMiss tells a missing trip apart from one whose guard no longer matched.
func (c *MongoTripCollection) conditionalMiss(ctx context.Context, id int64, err error) error {
	if err != mongo.ErrNoDocuments {
		return err
	}
	n, countErr := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return countErr
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// NormalizePage clamps pagination parameters to sane bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func tripQuery(filter models.TripFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ClientID != "" {
		query["client_id"] = filter.ClientID
	}
	if filter.DriverID != "" {
		query["driver_id"] = filter.DriverID
	}
	if filter.Search != "" {
		pattern := primitiveRegex(filter.Search)
		query["$or"] = bson.A{
			bson.M{"origin": pattern},
			bson.M{"destination": pattern},
			bson.M{"notes": pattern},
		}
	}
	return query
}

func primitiveRegex(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}
