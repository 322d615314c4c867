package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/db"
	"cloudpico-station/internal/db/migrate"
	"cloudpico-station/internal/modules/weather/repository"
)

const usage = `usage: %s <command>
  migrate        apply pending schema migrations
  status         list migrations and whether they are applied
  totals [n]     print the last n closed-day rain totals (default 7)
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	conn, err := db.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	ctx := context.Background()
	if err := runCommand(ctx, os.Args[1], os.Args[2:], conn, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		_ = db.Close(conn)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cmd string, args []string, conn *sql.DB, logger *slog.Logger) error {
	switch cmd {
	case "migrate":
		n, err := migrate.Run(ctx, conn, logger)
		if err != nil {
			return err
		}
		fmt.Printf("%d migrations applied\n", n)
		return nil

	case "status":
		ms, err := migrate.Status(ctx, conn)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
		for _, m := range ms {
			fmt.Fprintf(w, "%s\t%s\t%t\n", m.Version, m.Name, m.Applied)
		}
		return w.Flush()

	case "totals":
		limit := 7
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid count %q", args[0])
			}
			limit = n
		}
		totals, err := repository.NewRepository(conn).RecentRainTotals(ctx, limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DAY\tTICKS\tINCHES\tRECORDED")
		for _, t := range totals {
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\n", t.Day.Format(time.DateOnly), t.Ticks, t.Inches, t.RecordedAt.Format(time.RFC3339))
		}
		return w.Flush()

	default:
		return fmt.Errorf("unknown command (see %s with no arguments)", os.Args[0])
	}
}
