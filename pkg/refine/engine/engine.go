// Package engine orchestrates one complete schedule-refinement run: reading
// the original GTFS schedule, ingesting AVL observations into per-(trip,
// stop) statistics, fitting each route's standard-deviation cutoff, writing
// the revised stop_times files, and producing the adherence report.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/transitcore/schedulerefine/pkg/refine/adherence"
	"github.com/transitcore/schedulerefine/pkg/refine/calendar"
	"github.com/transitcore/schedulerefine/pkg/refine/estimator"
	"github.com/transitcore/schedulerefine/pkg/refine/fitter"
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
	"github.com/transitcore/schedulerefine/pkg/refine/metrics"
	"github.com/transitcore/schedulerefine/pkg/refine/observation"
	"github.com/transitcore/schedulerefine/pkg/refine/writer"
)

// Options carries every run-scoped tuning knob. These map directly onto the
// config file's fields; Engine itself has no config-file awareness.
type Options struct {
	BeginTime time.Time
	EndTime   time.Time

	IngestOptions   observation.IngestOptions
	EstimatorOptions estimator.Options
	AdherenceOptions adherence.Options

	DesiredFractionEarly    float64
	PreserveFirstStopOfTrip bool
}

// Result is what a run produces for its caller (the CLI, or a notify
// payload).
type Result struct {
	RunID           string
	RoutesProcessed int
	Report          adherence.Report
}

// Engine ties the reader, accumulator, fitter, writer, and adherence
// reporter together for a single GTFS directory/source pair.
type Engine struct {
	Calendar *calendar.Calendar
	Reader   gtfsmodel.Reader
	Writer   *gtfsmodel.Writer
	Source   observation.Source
	Metrics  *metrics.Collector
}

// Process runs one complete refinement: it is the Go equivalent of the
// engine's single public entry point. Cancelling ctx aborts ingestion
// between sub-windows and between routes; a run that has already started
// writing output files always finishes the write it is in.
func (e *Engine) Process(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Msg("starting schedule refinement run")

	stopTimes, frequencies, err := e.Reader.Read()
	if err != nil {
		return nil, fmt.Errorf("engine: reading gtfs schedule: %w", err)
	}

	ordered := gtfsmodel.BuildOrderedStopTimes(stopTimes)
	frequencyTrips := gtfsmodel.FrequencyTripSet(frequencies)
	firstStopOfTrip := gtfsmodel.FirstStopPerTrip(ordered)

	accumulator := NewAccumulator(frequencyTrips, firstStopOfTrip)
	accumulator.Metrics = e.Metrics
	handler := func(obs observation.Observation) {
		accumulator.Add(obs)
		if e.Metrics != nil {
			e.Metrics.ObservationsFolded.Inc()
		}
	}

	if err := observation.Ingest(ctx, e.Source, opts.BeginTime, opts.EndTime, opts.IngestOptions, e.Metrics, handler); err != nil {
		return nil, fmt.Errorf("engine: ingesting observations: %w", err)
	}

	departureStats, err := e.fitStats(ctx, ordered, accumulator, opts, observation.KindDeparture)
	if err != nil {
		return nil, err
	}
	arrivalStats, err := e.fitStats(ctx, ordered, accumulator, opts, observation.KindArrival)
	if err != nil {
		return nil, err
	}

	newRows, extendedRows := writer.Build(ordered, arrivalStats, departureStats, writer.Options{
		PreserveFirstStopOfTrip: opts.PreserveFirstStopOfTrip,
	})

	if err := e.Writer.Write(newRows, extendedRows); err != nil {
		return nil, fmt.Errorf("engine: writing output: %w", err)
	}

	report := adherence.Generate(ordered, arrivalStats, departureStats, opts.AdherenceOptions)

	routesProcessed := len(accumulator.Routes())

	log.Info().
		Str("run_id", runID).
		Int("routes_processed", routesProcessed).
		Int("total_data_points", report.TotalDataPoints).
		Msg("schedule refinement run complete")

	return &Result{
		RunID:           runID,
		RoutesProcessed: routesProcessed,
		Report:          report,
	}, nil
}

// fitStats turns the already-accumulated per-route time samples for one
// observation kind into fitted Stats, one route at a time so each route's
// bisection uses only its own distribution.
func (e *Engine) fitStats(
	ctx context.Context,
	ordered *gtfsmodel.OrderedStopTimes,
	accumulator *Accumulator,
	opts Options,
	kind observation.Kind,
) (map[gtfsmodel.TripStopKey]*estimator.Stats, error) {
	results := make(map[gtfsmodel.TripStopKey]*estimator.Stats)

	for _, routeID := range accumulator.Routes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		timesByTripStop := accumulator.TimesForRoute(routeID, kind)

		var routeStats []*estimator.Stats
		statsByKey := make(map[gtfsmodel.TripStopKey]*estimator.Stats, len(timesByTripStop))

		for key, times := range timesByTripStop {
			if _, ok := ordered.Get(key); !ok {
				log.Debug().
					Str("route_id", routeID).
					Str("trip_id", key.TripID).
					Str("stop_id", key.StopID).
					Msg("observations for a trip/stop not in the gtfs schedule, dropping")
				continue
			}
			original := originalScheduleTime(ordered, key, kind)
			stats := estimator.ForTripStop(times, original, kind.String(), opts.EstimatorOptions, key.TripID, key.StopID)
			if stats == nil {
				continue
			}
			statsByKey[key] = stats
			routeStats = append(routeStats, stats)
		}

		if len(routeStats) == 0 {
			continue
		}

		k := fitter.FitRoute(routeID, routeStats, opts.DesiredFractionEarly, e.Metrics)
		if e.Metrics != nil {
			e.Metrics.RoutesFitted.Inc()
			e.Metrics.FitKValue.WithLabelValues(routeID).Set(k)
		}

		for key, stats := range statsByKey {
			results[key] = stats
		}
	}

	return results, nil
}

func originalScheduleTime(ordered *gtfsmodel.OrderedStopTimes, key gtfsmodel.TripStopKey, kind observation.Kind) int {
	row, ok := ordered.Get(key)
	if !ok {
		return 0
	}
	if kind == observation.KindArrival {
		return row.ArrivalSec
	}
	return row.DepartureSec
}

