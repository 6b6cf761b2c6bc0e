package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/angas/skyphase/types/maybe"
)

// FetchCycleRow is one finished weather request. Only metadata is kept,
// never the forecast itself.
type FetchCycleRow struct {
	Seq       uint64               `json:"seq"`
	Started   time.Time            `json:"started"`
	Source    string               `json:"source"`
	Place     maybe.Maybe[string]  `json:"place"`
	Latitude  maybe.Maybe[float64] `json:"latitude"`
	Longitude maybe.Maybe[float64] `json:"longitude"`
	TempUnit  string               `json:"tempUnit"`
	WindUnit  string               `json:"windUnit"`
	Outcome   string               `json:"outcome"`
	ErrorKind string               `json:"errorKind,omitempty"`
	Error     string               `json:"error,omitempty"`
	Duration  time.Duration        `json:"duration"`
	Discarded bool                 `json:"discarded"`
}

func (d *Database) SaveFetchCycle(ctx context.Context, r FetchCycleRow) error {
	var place sql.NullString
	var lat, lon sql.NullFloat64
	if r.Place.IsValid() {
		place = sql.NullString{String: r.Place.Value(), Valid: true}
	}
	if r.Latitude.IsValid() && r.Longitude.IsValid() {
		lat = sql.NullFloat64{Float64: r.Latitude.Value(), Valid: true}
		lon = sql.NullFloat64{Float64: r.Longitude.Value(), Valid: true}
	}

	_, err := d.write.ExecContext(ctx, `
		INSERT INTO fetch_cycle (seq, started, source, place, latitude, longitude,
			temp_unit, wind_unit, outcome, error_kind, error, duration_ms, discarded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Seq,
		r.Started.UTC().Format(time.RFC3339),
		r.Source,
		place,
		lat,
		lon,
		r.TempUnit,
		r.WindUnit,
		r.Outcome,
		r.ErrorKind,
		r.Error,
		r.Duration.Milliseconds(),
		r.Discarded)
	if err != nil {
		return fmt.Errorf("saving fetch cycle %d: %w", r.Seq, err)
	}
	return nil
}

// GetFetchCycles returns the most recent cycles first.
func (d *Database) GetFetchCycles(ctx context.Context, limit int) ([]FetchCycleRow, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT seq, started, source, place, latitude, longitude,
			temp_unit, wind_unit, outcome, error_kind, error, duration_ms, discarded
		FROM fetch_cycle
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching fetch cycles: %w", err)
	}
	defer rows.Close()

	cycles := []FetchCycleRow{}
	for rows.Next() {
		var r FetchCycleRow
		var started string
		var place sql.NullString
		var lat, lon sql.NullFloat64
		var durationMs int64
		err := rows.Scan(&r.Seq, &started, &r.Source, &place, &lat, &lon,
			&r.TempUnit, &r.WindUnit, &r.Outcome, &r.ErrorKind, &r.Error, &durationMs, &r.Discarded)
		if err != nil {
			return nil, fmt.Errorf("scanning fetch cycle: %w", err)
		}
		r.Started, err = time.Parse(time.RFC3339, started)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		r.Place = maybe.SqlNull(place.String, place.Valid)
		r.Latitude = maybe.SqlNull(lat.Float64, lat.Valid)
		r.Longitude = maybe.SqlNull(lon.Float64, lon.Valid)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		cycles = append(cycles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading fetch cycle rows: %w", err)
	}

	return cycles, nil
}

func (d *Database) PurgeFetchCycles(ctx context.Context, retentionDays int) error {
	return d.purgeBefore(ctx, "fetch_cycle", "started", retentionDays)
}
