package db

import (
	"context"
	"database/sql"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"cloudpico-station/internal/config"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := make(map[string]slog.Value)
	m["msg"] = slog.StringValue(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(name string) slog.Handler { return h }

func (h *captureHandler) last(t *testing.T, msg string) map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.attrs) - 1; i >= 0; i-- {
		if h.attrs[i]["msg"].String() == msg {
			return h.attrs[i]
		}
	}
	t.Fatalf("no %q record logged", msg)
	return nil
}

func openTraced(t *testing.T) (*sql.DB, *captureHandler) {
	t.Helper()
	handler := &captureHandler{}
	connector, err := NewLoggingConnector(":memory:", slog.New(handler))
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, handler
}

func TestLoggingConnector_ExecWithArgs(t *testing.T) {
	db, handler := openTraced(t)

	if _, err := db.Exec(`CREATE TABLE rain (day TEXT, ticks INTEGER, note BLOB)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO rain (day, ticks, note) VALUES (?, ?, ?)`, "2024-06-01", 3, []byte{0x01, 0xD0}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got := handler.last(t, "sql")
	if got["op"].String() != "exec" {
		t.Errorf("op = %q, want exec", got["op"].String())
	}
	if got["sql"].String() != `INSERT INTO rain (day, ticks, note) VALUES (?, ?, ?)` {
		t.Errorf("sql = %q", got["sql"].String())
	}
	wantArgs := []string{"2024-06-01", "3", "X'01D0'"}
	if args, _ := got["args"].Any().([]string); !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", got["args"].Any(), wantArgs)
	}
	if _, ok := got["duration"]; !ok {
		t.Error("duration attribute missing")
	}
	if _, ok := got["error"]; ok {
		t.Error("error attribute on a successful exec")
	}

	if _, err := db.Exec(`INSERT INTO rain (day, ticks, note) VALUES (?, ?, ?)`, "2024-06-02", 0, nil); err != nil {
		t.Fatalf("insert null: %v", err)
	}
	if args, _ := handler.last(t, "sql")["args"].Any().([]string); len(args) != 3 || args[2] != "NULL" {
		t.Errorf("args = %v, want NULL for a nil blob", args)
	}
}

func TestLoggingConnector_QueryLogged(t *testing.T) {
	db, handler := openTraced(t)

	var one int
	if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil {
		t.Fatalf("query row: %v", err)
	}
	got := handler.last(t, "sql")
	if got["op"].String() != "query" || got["sql"].String() != `SELECT 1` {
		t.Errorf("record = op %q sql %q, want query SELECT 1", got["op"].String(), got["sql"].String())
	}
}

func TestLoggingConnector_ErrorsLogged(t *testing.T) {
	db, handler := openTraced(t)

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO t (id) VALUES (1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO t (id) VALUES (1)`); err == nil {
		t.Fatal("duplicate insert succeeded")
	}
	if _, ok := handler.last(t, "sql")["error"]; !ok {
		t.Error("error attribute missing on failed exec")
	}

	if _, err := db.Exec(`SELEC nonsense`); err == nil {
		t.Fatal("bad sql succeeded")
	}
	handler.last(t, "sql prepare failed")
}

func TestLoggingConnector_DirectOpenRejected(t *testing.T) {
	connector, err := NewLoggingConnector(":memory:", nil)
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	if _, err := connector.Driver().Open(":memory:"); err == nil {
		t.Error("Driver().Open succeeded, want error")
	}
}

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		dsn  string
		want string
	}{
		{"explicit dsn", "", "file::memory:?cache=shared", "file::memory:?cache=shared"},
		{"plain path", dir + "/a.db", "", "file:" + dir + "/a.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
		{"file uri with query", "file:" + dir + "/b.db?mode=rwc", "", "file:" + dir + "/b.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(configFor(tt.path, tt.dsn))
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := t.TempDir() + "/nested/station.db"
	db, err := Open(configFor(path, ""), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = Close(db) }()

	var mode string
	if err := db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func configFor(path, dsn string) config.Config {
	return config.Config{Driver: "sqlite3", Path: path, DSN: dsn, MaxOpenConns: 1, MaxIdleConns: 1}
}
