package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cloudpico-station/internal/modules/weather/types"
)

// Minimal schema matching internal/db/migrate/sql/0001_rain_totals.sql for in-memory tests.
const testSchema = `
CREATE TABLE IF NOT EXISTS rain_totals (
  id          INTEGER PRIMARY KEY,
  day         TEXT    NOT NULL,
  rain_ticks  INTEGER NOT NULL CHECK (rain_ticks >= 0),
  rain_in     REAL    NOT NULL,
  recorded_at TEXT    NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
		t.Fatalf("exec schema: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	})
	return db
}

func TestInsertRainTotal_RoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	day1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	recorded := time.Date(2024, 6, 3, 0, 0, 1, 0, time.UTC)

	for _, rt := range []types.RainTotal{
		{Day: day1, Ticks: 3, Inches: 0.033, RecordedAt: recorded},
		{Day: day2, Ticks: 10, Inches: 0.11, RecordedAt: recorded},
	} {
		if err := repo.InsertRainTotal(ctx, rt); err != nil {
			t.Fatalf("InsertRainTotal(%v): %v", rt.Day, err)
		}
	}

	got, err := repo.RecentRainTotals(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRainTotals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d totals, want 2", len(got))
	}
	if !got[0].Day.Equal(day2) || got[0].Ticks != 10 {
		t.Errorf("newest = %+v, want 2024-06-02 with 10 ticks", got[0])
	}
	if !got[1].RecordedAt.Equal(recorded) || got[1].Inches != 0.033 {
		t.Errorf("oldest = %+v", got[1])
	}

	limited, err := repo.RecentRainTotals(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRainTotals: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d rows", len(limited))
	}
}

func TestInsertRainTotal_Rejects(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		total types.RainTotal
	}{
		{"zero day", types.RainTotal{Ticks: 1}},
		{"negative inches", types.RainTotal{Day: time.Now(), Inches: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.InsertRainTotal(ctx, tt.total); err == nil {
				t.Error("InsertRainTotal succeeded, want error")
			}
		})
	}
}

func TestInsertRainTotal_CancelledContext(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.InsertRainTotal(ctx, types.RainTotal{Day: time.Now(), Ticks: 1})
	if err == nil {
		t.Error("InsertRainTotal succeeded with a cancelled context")
	}
}
