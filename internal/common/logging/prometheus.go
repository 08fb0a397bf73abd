package logging

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// PrometheusHook implements log.Hook and counts log lines by level.
type PrometheusHook struct {
	counter *prometheus.CounterVec
}

// NewPrometheusHook creates the counter and registers it with reg.
func NewPrometheusHook(reg prometheus.Registerer) (*PrometheusHook, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phononflow_log_messages",
		Help: "Total number of log lines logged by level",
	}, []string{"level"})
	if err := reg.Register(counter); err != nil {
		return nil, err
	}
	return &PrometheusHook{counter: counter}, nil
}

func (h *PrometheusHook) Levels() []log.Level {
	return []log.Level{log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel}
}

func (h *PrometheusHook) Fire(entry *log.Entry) error {
	h.counter.WithLabelValues(entry.Level.String()).Inc()
	return nil
}
