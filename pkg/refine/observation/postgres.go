package observation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/transitcore/schedulerefine/pkg/refine/calendar"
)

// PostgresSource pages through an avl_observations table using OFFSET/LIMIT
// against a single 1-day window at a time, exactly the batching the engine's
// ingest loop drives it with.
type PostgresSource struct {
	DB       *sql.DB
	Calendar *calendar.Calendar
}

// OpenPostgres opens a pgx-backed *sql.DB against dsn and tunes its pool for
// the engine's access pattern: one long-running ingest goroutine plus a
// depth-1 prefetch, so there is never a need for a large connection pool.
func OpenPostgres(dsn string, cal *calendar.Calendar) (*PostgresSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("observation: opening postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &PostgresSource{DB: db, Calendar: cal}, nil
}

func (s *PostgresSource) Close() error {
	return s.DB.Close()
}

func (s *PostgresSource) Fetch(ctx context.Context, begin, end time.Time, kind Kind, offset, limit int) ([]Observation, error) {
	const q = `
SELECT vehicle_id, block_id, trip_id, stop_id, route_id, observed_time, kind
FROM avl_observations
WHERE observed_time >= $1 AND observed_time < $2 AND kind = $3
ORDER BY observed_time
OFFSET $4 LIMIT $5`

	rows, err := s.DB.QueryContext(ctx, q, begin, end, kind.String(), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("observation: query page: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var observedAt time.Time
		var kindStr string
		if err := rows.Scan(&o.VehicleID, &o.BlockID, &o.TripID, &o.StopID, &o.RouteID, &observedAt, &kindStr); err != nil {
			return nil, fmt.Errorf("observation: scan row: %w", err)
		}
		o.Kind = kind
		o.TimeSec = s.Calendar.SecondsIntoDay(observedAt)
		o.DayOfYear = s.Calendar.DayOfYear(observedAt)
		out = append(out, o)
	}
	return out, rows.Err()
}
