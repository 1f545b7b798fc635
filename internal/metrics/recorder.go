package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pgrefresh"

// Recorder collects the metrics of a single run.
type Recorder struct {
	registry *prometheus.Registry
	started  time.Time
	now      func() time.Time

	stageDuration *prometheus.GaugeVec
	escalations   *prometheus.GaugeVec
	success       prometheus.Gauge
	exitCode      prometheus.Gauge
	timestamp     prometheus.Gauge
	duration      prometheus.Gauge
}

// NewRecorder creates a Recorder whose run starts now.
func NewRecorder() *Recorder {
	return newRecorder(time.Now)
}

func newRecorder(now func() time.Time) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		started:  now(),
		now:      now,
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each stage of the last run.",
		}, []string{"stage"}),
		escalations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "escalations",
			Help:      "Whether a transition of the last run needed escalation (1) or not (0).",
		}, []string{"transition"}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "Whether the last run succeeded.",
		}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_exit_code",
			Help:      "Process exit code of the last run.",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
	}
	r.registry.MustRegister(r.stageDuration, r.escalations, r.success, r.exitCode, r.timestamp, r.duration)
	return r
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// SetEscalated records whether a transition needed escalation.
func (r *Recorder) SetEscalated(transition string, escalated bool) {
	v := 0.0
	if escalated {
		v = 1
	}
	r.escalations.WithLabelValues(transition).Set(v)
}

// Finish records the end of the run with the process exit code.
func (r *Recorder) Finish(exitCode int) {
	end := r.now()
	if exitCode == 0 {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
	r.exitCode.Set(float64(exitCode))
	r.timestamp.Set(float64(end.Unix()))
	r.duration.Set(end.Sub(r.started).Seconds())
}

// WriteTextfile atomically writes the collected metrics in the text
// exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
