package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger is implemented by sinks that can report connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

type SinkHealth struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type HealthStatus struct {
	Healthy bool         `json:"healthy"`
	Running bool         `json:"running"`
	Stats   Stats        `json:"stats"`
	Sinks   []SinkHealth `json:"sinks"`
	Errors  []string     `json:"errors"`
}

type HealthChecker struct {
	outbox *Outbox
	// pending events above this mark the outbox unhealthy
	pendingLimit int
}

func NewHealthChecker(o *Outbox, pendingLimit int) *HealthChecker {
	return &HealthChecker{outbox: o, pendingLimit: pendingLimit}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Running: h.outbox.Running(),
		Stats:   h.outbox.Stats(),
		Errors:  []string{},
	}

	if !status.Running {
		status.Healthy = false
		status.Errors = append(status.Errors, "worker not running")
	}

	for _, sink := range h.outbox.sinks {
		sh := SinkHealth{Name: sink.Name(), Connected: true}
		if p, ok := sink.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				sh.Connected = false
				status.Healthy = false
				status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", sink.Name(), err))
			}
		}
		status.Sinks = append(status.Sinks, sh)
	}

	if h.pendingLimit > 0 && status.Stats.Pending > h.pendingLimit {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", status.Stats.Pending))
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode outbox health")
	}
}

// Export renders the health status in the Prometheus text format
func (h *HealthChecker) Export(ctx context.Context) string {
	status := h.Check(ctx)

	out := fmt.Sprintf(`# HELP outbox_healthy Whether the outbox is healthy
# TYPE outbox_healthy gauge
outbox_healthy %d

# HELP outbox_worker_running Whether the delivery worker is running
# TYPE outbox_worker_running gauge
outbox_worker_running %d

# HELP outbox_pending_events Events buffered for delivery
# TYPE outbox_pending_events gauge
outbox_pending_events %d

# HELP outbox_events_delivered_total Events delivered to every sink
# TYPE outbox_events_delivered_total counter
outbox_events_delivered_total %d

# HELP outbox_events_failed_total Sink deliveries that gave up after retries
# TYPE outbox_events_failed_total counter
outbox_events_failed_total %d

# HELP outbox_events_dropped_total Events dropped because the buffer was full
# TYPE outbox_events_dropped_total counter
outbox_events_dropped_total %d
`,
		gauge(status.Healthy),
		gauge(status.Running),
		status.Stats.Pending,
		status.Stats.Delivered,
		status.Stats.Failed,
		status.Stats.Dropped,
	)

	if len(status.Sinks) > 0 {
		out += "\n# HELP outbox_sink_connected Whether a sink can reach its backend\n# TYPE outbox_sink_connected gauge\n"
		for _, s := range status.Sinks {
			out += fmt.Sprintf("outbox_sink_connected{sink=%q} %d\n", s.Name, gauge(s.Connected))
		}
	}
	return out
}

// MetricsHandler serves Export on GET
func (h *HealthChecker) MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if _, err := w.Write([]byte(h.Export(r.Context()))); err != nil {
			log.Error().Err(err).Msg("failed to write outbox metrics")
		}
	})
}

func gauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
