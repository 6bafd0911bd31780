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

// MongoReportSource reads across collections for reports and alerts.
type MongoReportSource struct {
	Trips          *mongo.Collection
	DriverPayments *mongo.Collection
	Vehicles       *mongo.Collection
	Clients        *mongo.Collection
}

func receivableQuery() bson.M {
	return bson.M{
		"status":         bson.M{"$ne": models.TripCancelled},
		"payment_status": bson.M{"$ne": models.PaymentPaid},
	}
}

// ReceivableTrips returns every non-cancelled trip the client has not fully paid.
func (s *MongoReportSource) ReceivableTrips(ctx context.Context) ([]models.Trip, error) {
	if s.Trips == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	opts := options.Find().SetSort(bson.D{{Key: "client_id", Value: 1}, {Key: "payment_due_at", Value: 1}})
	cursor, err := s.Trips.Find(ctx, receivableQuery(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	trips := []models.Trip{}
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// ClientNames maps client ids (hex) to display names.
func (s *MongoReportSource) ClientNames(ctx context.Context) (map[string]string, error) {
	if s.Clients == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	opts := options.Find().SetProjection(bson.M{"name": 1})
	cursor, err := s.Clients.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(docs))
	for _, d := range docs {
		names[d.ID.Hex()] = d.Name
	}
	return names, nil
}

// AlertCounts counts the conditions the alerts widget reports.
func (s *MongoReportSource) AlertCounts(ctx context.Context, now time.Time, dueSoon time.Duration) (models.AlertSummary, error) {
	var summary models.AlertSummary

	overdue := receivableQuery()
	overdue["payment_due_at"] = bson.M{"$lt": now}

	soon := receivableQuery()
	soon["payment_due_at"] = bson.M{"$gte": now, "$lte": now.Add(dueSoon)}

	counts := []struct {
		coll   *mongo.Collection
		filter bson.M
		dst    *int
	}{
		{s.Trips, overdue, &summary.OverduePayments},
		{s.Trips, soon, &summary.DueSoonPayments},
		{s.DriverPayments, bson.M{"status": models.DriverPaymentPending}, &summary.PendingDriverPay},
		{s.Trips, bson.M{"status": models.TripInProgress}, &summary.TripsInProgress},
		{s.Vehicles, bson.M{"status": models.VehicleMaintenance}, &summary.VehiclesInShop},
		{s.Trips, bson.M{"status": models.TripPlanned, "departure_at": bson.M{"$lt": now}}, &summary.PlannedOverdueTrip},
	}
	for _, c := range counts {
		if c.coll == nil {
			return summary, fmt.Errorf("mongo collection is nil")
		}
		n, err := c.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return summary, err
		}
		*c.dst = int(n)
	}
	return summary, nil
}
