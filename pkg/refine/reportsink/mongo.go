// Package reportsink optionally persists a completed run's adherence report
// to a MongoDB collection, keyed by run id, so that adherence improvement can
// be tracked across repeated refinement runs rather than only read off the
// structured log line the engine already emits.
package reportsink

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/transitcore/schedulerefine/pkg/refine/adherence"
)

// runReport mirrors the schedule_refinement_reports collection's document
// shape.
type runReport struct {
	RunID                 string    `bson:"runId"`
	CompletedAt           time.Time `bson:"completedAt"`
	RoutesProcessed       int       `bson:"routesProcessed"`
	TotalDataPoints       int       `bson:"totalDataPoints"`
	PercentOnTimeOriginal float64   `bson:"percentOnTimeOriginal"`
	PercentOnTimeNew      float64   `bson:"percentOnTimeNew"`
}

// Sink writes completed runs to a fixed MongoDB collection.
type Sink struct {
	Collection *mongo.Collection
}

// Connect dials uri and returns a Sink plus a function that disconnects the
// underlying client. A connection failure is returned rather than silently
// disabling the sink, since a configured sink that silently no-ops would hide
// a misconfiguration from the operator.
func Connect(ctx context.Context, uri, database string) (*Sink, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("reportsink: connecting to mongo: %w", err)
	}

	collection := client.Database(database).Collection("schedule_refinement_reports")
	closeFn := func() { _ = client.Disconnect(ctx) }
	return &Sink{Collection: collection}, closeFn, nil
}

// Record upserts one run's report, keyed by runID, so a retried run
// overwrites its own prior document rather than accumulating duplicates.
func (s *Sink) Record(ctx context.Context, runID string, completedAt time.Time, routesProcessed int, report adherence.Report) error {
	doc := runReport{
		RunID:                 runID,
		CompletedAt:           completedAt,
		RoutesProcessed:       routesProcessed,
		TotalDataPoints:       report.TotalDataPoints,
		PercentOnTimeOriginal: report.PercentOnTimeOriginal(),
		PercentOnTimeNew:      report.PercentOnTimeNew(),
	}

	_, err := s.Collection.ReplaceOne(ctx,
		bson.M{"runId": runID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("reportsink: writing report for run %s: %w", runID, err)
	}
	return nil
}
