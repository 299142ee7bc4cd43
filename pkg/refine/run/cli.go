// Package run wires a config file into a complete engine.Engine and exposes
// it as a urfave/cli command, the same way Travigo's service packages expose
// a RegisterCLI function for the top-level binary to mount.
package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/transitcore/schedulerefine/pkg/config"
	"github.com/transitcore/schedulerefine/pkg/refine/adherence"
	"github.com/transitcore/schedulerefine/pkg/refine/cache"
	"github.com/transitcore/schedulerefine/pkg/refine/calendar"
	"github.com/transitcore/schedulerefine/pkg/refine/engine"
	"github.com/transitcore/schedulerefine/pkg/refine/estimator"
	"github.com/transitcore/schedulerefine/pkg/refine/gtfsmodel"
	"github.com/transitcore/schedulerefine/pkg/refine/metrics"
	"github.com/transitcore/schedulerefine/pkg/refine/notify"
	"github.com/transitcore/schedulerefine/pkg/refine/observation"
	"github.com/transitcore/schedulerefine/pkg/refine/reportsink"
	"github.com/transitcore/schedulerefine/pkg/util"
)

var supportedDrivers = []string{"postgres", "mongo"}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "schedule-refine",
		Usage: "Fits a revised GTFS schedule from AVL observations",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one complete schedule refinement",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Value:    "config.yml",
						Usage:    "path to the run configuration file",
						Required: false,
					},
				},
				Action: runAction,
			},
		},
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("run: loading config: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("run: resolving timezone %q: %w", cfg.Timezone, err)
	}
	cal := calendar.New(loc)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT)
	defer signal.Stop(signals)
	go func() {
		<-signals
		log.Warn().Msg("run: interrupt received, cancelling after the current page/route")
		cancel()
		<-signals
		os.Exit(1)
	}()

	reader, err := buildReader(cfg)
	if err != nil {
		return err
	}
	if cfg.Cache.Enabled {
		cached, err := cache.NewCachingReader(cache.Config{
			Address:  cfg.Cache.RedisAddr,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		}, reader)
		if err != nil {
			return fmt.Errorf("run: enabling gtfs cache: %w", err)
		}
		reader = cached
	}

	source, closeSource, err := buildSource(ctx, cfg, cal)
	if err != nil {
		return err
	}
	defer closeSource()

	var collector *metrics.Collector
	var metricsServer interface{ Close() error }
	if cfg.MetricsAddr != "" {
		collector = metrics.NewCollector()
		srv := collector.Serve(cfg.MetricsAddr)
		metricsServer = srv
		defer metricsServer.Close()
	}

	eng := &engine.Engine{
		Calendar: cal,
		Reader:   reader,
		Writer:   gtfsmodel.NewWriter(outputDirectory(cfg)),
		Source:   source,
		Metrics:  collector,
	}

	opts := engine.Options{
		BeginTime: cfg.BeginTime,
		EndTime:   cfg.EndTime,
		IngestOptions: observation.IngestOptions{
			PageSize:        cfg.PageSize,
			WindowChunkDays: cfg.WindowChunkDays,
		},
		EstimatorOptions: estimator.Options{
			AllowableDifferenceFromMeanSecs:     cfg.AllowableDifferenceFromMeanSecs,
			AllowableDifferenceFromOriginalSecs: cfg.AllowableDifferenceFromOriginalSecs,
		},
		AdherenceOptions: adherence.Options{
			AllowableEarlySecs: cfg.AllowableEarlySecs,
			AllowableLateSecs:  cfg.AllowableLateSecs,
		},
		DesiredFractionEarly:    cfg.DesiredFractionEarly,
		PreserveFirstStopOfTrip: cfg.PreserveFirstStopOfTrip,
	}

	start := time.Now()
	result, err := eng.Process(ctx, opts)
	if err != nil {
		return fmt.Errorf("run: processing: %w", err)
	}
	if collector != nil {
		collector.RunDuration.Observe(time.Since(start).Seconds())
	}

	completedAt := time.Now()

	if cfg.NotifyURL != "" {
		publisher, err := notify.Connect(cfg.NotifyURL, cfg.NotifySubject)
		if err != nil {
			log.Warn().Err(err).Msg("run: could not connect to notify target, skipping completion notice")
		} else {
			defer publisher.Close()
			msg := notify.RunCompleted{
				RunID:           result.RunID,
				CompletedAt:     completedAt,
				RoutesProcessed: result.RoutesProcessed,
				TotalDataPoints: result.Report.TotalDataPoints,
				PercentOnTime:   result.Report.PercentOnTimeNew(),
			}
			if err := publisher.PublishRunCompleted(msg); err != nil {
				log.Warn().Err(err).Msg("run: failed to publish completion notice")
			}
		}
	}

	if cfg.MongoReportSink != "" {
		sink, closeSink, err := reportsink.Connect(ctx, cfg.MongoReportSink, defaultMongoDatabase(cfg))
		if err != nil {
			log.Warn().Err(err).Msg("run: could not connect to report sink, skipping report persistence")
		} else {
			defer closeSink()
			if err := sink.Record(ctx, result.RunID, completedAt, result.RoutesProcessed, result.Report); err != nil {
				log.Warn().Err(err).Msg("run: failed to persist adherence report")
			}
		}
	}

	return nil
}

func outputDirectory(cfg *config.Config) string {
	if cfg.GTFS.Directory != "" {
		return cfg.GTFS.Directory
	}
	return "."
}

func buildReader(cfg *config.Config) (gtfsmodel.Reader, error) {
	if cfg.GTFS.ZipPath != "" {
		return gtfsmodel.NewZipReader(cfg.GTFS.ZipPath), nil
	}
	if cfg.GTFS.Directory != "" {
		return gtfsmodel.NewDirectoryReader(cfg.GTFS.Directory), nil
	}
	return nil, fmt.Errorf("run: config must set gtfs.zipPath or gtfs.directory")
}

func buildSource(ctx context.Context, cfg *config.Config, cal *calendar.Calendar) (observation.Source, func(), error) {
	if !util.ContainsString(supportedDrivers, cfg.Source.Driver) {
		return nil, nil, fmt.Errorf("run: unsupported source driver %q, must be one of %v", cfg.Source.Driver, supportedDrivers)
	}

	switch cfg.Source.Driver {
	case "postgres":
		src, err := observation.OpenPostgres(cfg.Source.ConnectionString, cal)
		if err != nil {
			return nil, nil, fmt.Errorf("run: opening postgres source: %w", err)
		}
		return src, func() { src.DB.Close() }, nil
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Source.ConnectionString))
		if err != nil {
			return nil, nil, fmt.Errorf("run: connecting to mongo: %w", err)
		}
		db := client.Database(defaultMongoDatabase(cfg))
		src := observation.NewMongoSource(db, cal)
		return src, func() { _ = client.Disconnect(ctx) }, nil
	default:
		return nil, nil, fmt.Errorf("run: unsupported source driver %q", cfg.Source.Driver)
	}
}

func defaultMongoDatabase(cfg *config.Config) string {
	if cfg.Source.ObservationTable != "" {
		return cfg.Source.ObservationTable
	}
	return "transit"
}
