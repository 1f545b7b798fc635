package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"go.uber.org/goleak"

	"github.com/plexsphere/pgrefresh/internal/runner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testService = "postgresql-16"

	outActive = "● postgresql-16.service - PostgreSQL 16 database server\n" +
		"   Loaded: loaded (/usr/lib/systemd/system/postgresql-16.service; enabled)\n" +
		"   Active: active (running) since Mon 2026-10-19 08:00:00 UTC; 2h ago"
	outInactive = "● postgresql-16.service - PostgreSQL 16 database server\n" +
		"   Loaded: loaded (/usr/lib/systemd/system/postgresql-16.service; enabled)\n" +
		"   Active: inactive (dead)"
	outFailed = "● postgresql-16.service - PostgreSQL 16 database server\n" +
		"   Loaded: loaded (/usr/lib/systemd/system/postgresql-16.service; enabled)\n" +
		"   Active: failed (Result: exit-code) since Mon 2026-10-19 08:00:00 UTC"
	outUnknown = "Unit postgresql-16.service could not be found."
)

func managerOutput(s ManagerState) string {
	switch s {
	case ManagerActive:
		return outActive
	case ManagerInactive:
		return outInactive
	case ManagerFailed:
		return outFailed
	default:
		return outUnknown
	}
}

// --- Mock Runner ---

// mockRunner answers `systemctl status` from a scripted list of manager
// states (the last one repeats) and every other command from results.
type mockRunner struct {
	states  []ManagerState
	results map[string]runner.Result
	calls   []runner.Command

	statusCalls int
}

func (m *mockRunner) Run(_ context.Context, cmd runner.Command) runner.Result {
	m.calls = append(m.calls, cmd)
	if cmd.Name == "systemctl" && len(cmd.Args) > 0 && cmd.Args[0] == "status" {
		i := min(m.statusCalls, len(m.states)-1)
		m.statusCalls++
		out := managerOutput(m.states[i])
		return runner.Result{Output: out, OK: m.states[i] == ManagerActive}
	}
	if res, ok := m.results[cmd.String()]; ok {
		return res
	}
	return runner.Result{OK: true}
}

// transitions returns every command except status queries.
func (m *mockRunner) transitions() []string {
	var out []string
	for _, c := range m.calls {
		if c.Name == "systemctl" && len(c.Args) > 0 && c.Args[0] == "status" {
			continue
		}
		out = append(out, c.String())
	}
	return out
}

// --- Mock ReadinessProbe ---

// mockProbe returns scripted states in order; the last one repeats.
type mockProbe struct {
	states []ProbeState
	calls  int
}

func (m *mockProbe) Check(_ context.Context) ProbeState {
	i := min(m.calls, len(m.states)-1)
	m.calls++
	return m.states[i]
}

// --- Test helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(r *mockRunner, p *mockProbe) *Controller {
	return NewController(Config{Name: testService}, r, p, testLogger())
}

const (
	cmdStop    = "systemctl stop " + testService
	cmdStart   = "systemctl start " + testService
	cmdRestart = "systemctl restart " + testService
	cmdKill    = "pkill -u postgres"
)
