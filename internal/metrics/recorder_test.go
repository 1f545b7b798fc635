package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestRecorder_Finish(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_760_000_000, 0)}
	r := newRecorder(clock.now)

	clock.t = clock.t.Add(90 * time.Second)
	r.Finish(0)

	if got := testutil.ToFloat64(r.success); got != 1 {
		t.Errorf("last_run_success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.duration); got != 90 {
		t.Errorf("run_duration_seconds = %v, want 90", got)
	}
	if got := testutil.ToFloat64(r.timestamp); got != 1_760_000_090 {
		t.Errorf("last_run_timestamp_seconds = %v, want 1760000090", got)
	}
}

func TestRecorder_FinishFailure(t *testing.T) {
	r := NewRecorder()
	r.Finish(5)

	if got := testutil.ToFloat64(r.success); got != 0 {
		t.Errorf("last_run_success = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.exitCode); got != 5 {
		t.Errorf("last_run_exit_code = %v, want 5", got)
	}
}

func TestRecorder_StagesAndEscalations(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("stop", 3*time.Second)
	r.SetEscalated("stop", true)
	r.SetEscalated("start", false)

	if got := testutil.ToFloat64(r.stageDuration.WithLabelValues("stop")); got != 3 {
		t.Errorf("stage_duration_seconds{stage=stop} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.escalations.WithLabelValues("stop")); got != 1 {
		t.Errorf("escalations{transition=stop} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.escalations.WithLabelValues("start")); got != 0 {
		t.Errorf("escalations{transition=start} = %v, want 0", got)
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("sync", time.Minute)
	r.Finish(0)

	path := filepath.Join(t.TempDir(), "pgrefresh.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"pgrefresh_last_run_success 1",
		`pgrefresh_stage_duration_seconds{stage="sync"} 60`,
		"# TYPE pgrefresh_run_duration_seconds gauge",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestRecorder_WriteTextfile_BadDir(t *testing.T) {
	r := NewRecorder()
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Fatal("WriteTextfile() = nil, want error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		textfile string
		wantErr  bool
	}{
		{"", false},
		{"/var/lib/node_exporter/textfile/pgrefresh.prom", false},
		{"/var/lib/node_exporter/textfile/pgrefresh.txt", true},
		{"/var/lib/node_exporter/textfile/.prom", true},
	}
	for _, tt := range tests {
		cfg := Config{Textfile: tt.textfile}
		if err := cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) = %v, wantErr %v", tt.textfile, err, tt.wantErr)
		}
	}
}
