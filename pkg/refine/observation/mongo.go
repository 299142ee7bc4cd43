package observation

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/transitcore/schedulerefine/pkg/refine/calendar"
)

// mongoObservation mirrors the avl_observations collection's document shape.
type mongoObservation struct {
	VehicleID    string    `bson:"vehicleId"`
	BlockID      string    `bson:"blockId"`
	TripID       string    `bson:"tripId"`
	StopID       string    `bson:"stopId"`
	RouteID      string    `bson:"routeId"`
	ObservedTime time.Time `bson:"observedTime"`
	Kind         string    `bson:"kind"`
}

// MongoSource pages through an avl_observations collection sorted by
// observedTime, using skip/limit the same way PostgresSource uses
// OFFSET/LIMIT.
type MongoSource struct {
	Collection *mongo.Collection
	Calendar   *calendar.Calendar
}

func NewMongoSource(db *mongo.Database, cal *calendar.Calendar) *MongoSource {
	return &MongoSource{
		Collection: db.Collection("avl_observations"),
		Calendar:   cal,
	}
}

func (s *MongoSource) Fetch(ctx context.Context, begin, end time.Time, kind Kind, offset, limit int) ([]Observation, error) {
	query := bson.M{
		"observedTime": bson.M{"$gte": begin, "$lt": end},
		"kind":         kind.String(),
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "observedTime", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("observation: mongo find: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Observation
	for cursor.Next(ctx) {
		var doc mongoObservation
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("observation: mongo decode: %w", err)
		}

		out = append(out, Observation{
			VehicleID: doc.VehicleID,
			BlockID:   doc.BlockID,
			TripID:    doc.TripID,
			StopID:    doc.StopID,
			RouteID:   doc.RouteID,
			Kind:      kind,
			TimeSec:   s.Calendar.SecondsIntoDay(doc.ObservedTime),
			DayOfYear: s.Calendar.DayOfYear(doc.ObservedTime),
		})
	}
	return out, cursor.Err()
}
