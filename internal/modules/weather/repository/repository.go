package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"cloudpico-station/internal/modules/weather/types"
)

//go:embed sql/insert-rain-total.sql
var insertRainTotalSQL string

//go:embed sql/get-rain-totals.sql
var getRainTotalsSQL string

type RainRepository interface {
	InsertRainTotal(ctx context.Context, total types.RainTotal) error
	// RecentRainTotals returns the newest closed days first.
	RecentRainTotals(ctx context.Context, limit int) ([]types.RainTotal, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) RainRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertRainTotal(ctx context.Context, total types.RainTotal) error {
	if total.Day.IsZero() {
		return fmt.Errorf("insert rain total: day not set")
	}
	if total.Inches < 0 {
		return fmt.Errorf("insert rain total: negative amount %f", total.Inches)
	}
	recordedAt := total.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, insertRainTotalSQL,
		total.Day.Format(time.DateOnly),
		int64(total.Ticks),
		total.Inches,
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert rain total: %w", err)
	}
	return nil
}

func (r *repositoryImpl) RecentRainTotals(ctx context.Context, limit int) ([]types.RainTotal, error) {
	rows, err := r.db.QueryContext(ctx, getRainTotalsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close rain totals rows", "error", err)
		}
	}()

	var out []types.RainTotal
	for rows.Next() {
		var (
			rec     types.RainTotal
			day, at string
			ticks   int64
		)
		if err := rows.Scan(&day, &ticks, &rec.Inches, &at); err != nil {
			return nil, err
		}
		if rec.Day, err = time.Parse(time.DateOnly, day); err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", at, err)
		}
		rec.Ticks = uint64(ticks)
		out = append(out, rec)
	}
	return out, rows.Err()
}
