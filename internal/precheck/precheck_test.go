package precheck

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock conn ---

type mockRow struct {
	value int
	err   error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = r.value
	return nil
}

type mockConn struct {
	row    mockRow
	sql    string
	closed bool
}

func (m *mockConn) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	m.sql = sql
	return m.row
}

func (m *mockConn) Close(_ context.Context) error {
	m.closed = true
	return nil
}

func newTestChecker(password string, c *mockConn, connectErr error) (*Checker, **pgx.ConnConfig) {
	ch := NewChecker(Config{Host: "db-src", Port: 5433, Username: "replication"}, password, testLogger())
	var seen *pgx.ConnConfig
	ch.connect = func(_ context.Context, cfg *pgx.ConnConfig) (conn, error) {
		seen = cfg
		if connectErr != nil {
			return nil, connectErr
		}
		return c, nil
	}
	return ch, &seen
}

func TestChecker_ConnString(t *testing.T) {
	ch := NewChecker(Config{Host: "db-src", Port: 5433, Username: "replication", PassFile: "/var/lib/pgsql/.pgpass"}, "", testLogger())
	got := ch.ConnString()
	want := "postgres://replication@db-src:5433/postgres?connect_timeout=10&passfile=%2Fvar%2Flib%2Fpgsql%2F.pgpass"
	if got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}
}

func TestChecker_ConnString_DataOwnerPassFile(t *testing.T) {
	cfg := Config{Host: "db-src", Port: 5432, Username: "replication", DataOwner: "postgres"}
	home := func(username string) (string, error) {
		if username != "postgres" {
			return "", errors.New("unknown user")
		}
		return "/var/lib/pgsql", nil
	}

	tests := []struct {
		name     string
		cfg      Config
		password string
		lookup   func(string) (string, error)
		want     string
	}{
		{
			name:   "data owner home",
			cfg:    cfg,
			lookup: home,
			want:   "postgres://replication@db-src:5432/postgres?connect_timeout=10&passfile=%2Fvar%2Flib%2Fpgsql%2F.pgpass",
		},
		{
			name:     "prompted password wins",
			cfg:      cfg,
			password: "s3cret",
			lookup:   home,
			want:     "postgres://replication@db-src:5432/postgres?connect_timeout=10",
		},
		{
			name: "explicit passfile wins",
			cfg: Config{Host: "db-src", Port: 5432, Username: "replication", DataOwner: "postgres",
				PassFile: "/etc/pgrefresh/pgpass"},
			lookup: home,
			want:   "postgres://replication@db-src:5432/postgres?connect_timeout=10&passfile=%2Fetc%2Fpgrefresh%2Fpgpass",
		},
		{
			name:   "unknown owner falls back to libpq defaults",
			cfg:    Config{Host: "db-src", Port: 5432, Username: "replication", DataOwner: "nobody-here"},
			lookup: home,
			want:   "postgres://replication@db-src:5432/postgres?connect_timeout=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := NewChecker(tt.cfg, tt.password, testLogger())
			ch.lookupHome = tt.lookup
			if got := ch.ConnString(); got != tt.want {
				t.Errorf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChecker_Check_Success(t *testing.T) {
	c := &mockConn{row: mockRow{value: 1}}
	ch, seen := newTestChecker("s3cret", c, nil)

	if err := ch.Check(context.Background()); err != nil {
		t.Fatalf("Check() = %v", err)
	}
	if c.sql != "SELECT 1" {
		t.Errorf("query = %q, want SELECT 1", c.sql)
	}
	if !c.closed {
		t.Error("connection not closed")
	}
	if (*seen).Password != "s3cret" {
		t.Errorf("Password = %q, want prompted password", (*seen).Password)
	}
	if (*seen).Host != "db-src" || (*seen).Port != 5433 || (*seen).User != "replication" {
		t.Errorf("config = %s:%d %s", (*seen).Host, (*seen).Port, (*seen).User)
	}
}

func TestChecker_Check_Failures(t *testing.T) {
	tests := []struct {
		name       string
		conn       *mockConn
		connectErr error
		wantMsg    string
	}{
		{"connect refused", nil, errors.New("connection refused"), "connection refused"},
		{"query fails", &mockConn{row: mockRow{err: errors.New("permission denied")}}, nil, "permission denied"},
		{"unexpected result", &mockConn{row: mockRow{value: 2}}, nil, "returned 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, _ := newTestChecker("", tt.conn, tt.connectErr)
			err := ch.Check(context.Background())
			if !errors.Is(err, ErrUnreachable) {
				t.Fatalf("Check() = %v, want ErrUnreachable", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Check() = %q, want it to mention %q", err, tt.wantMsg)
			}
			if !strings.Contains(err.Error(), "db-src:5433 as replication") {
				t.Errorf("Check() = %q, want the target", err)
			}
		})
	}
}

func TestChecker_Check_RealConnectionRefused(t *testing.T) {
	ch := NewChecker(Config{Host: "127.0.0.1", Port: 1, ConnectTimeout: 2 * time.Second}, "", testLogger())
	if err := ch.Check(context.Background()); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Check() = %v, want ErrUnreachable", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty host", func(c *Config) { c.Host = "" }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"empty username", func(c *Config) { c.Username = "" }, true},
		{"short timeout", func(c *Config) { c.ConnectTimeout = time.Millisecond }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
