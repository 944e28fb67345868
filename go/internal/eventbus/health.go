package eventbus

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ConnectionReporter is implemented by publishers backed by a broker connection.
type ConnectionReporter interface {
	Connected() bool
}

// HealthStatus describes the event pipeline.
type HealthStatus struct {
	Healthy bool `json:"healthy"`
	Stats
	NATSConnected *bool    `json:"nats_connected,omitempty"`
	Errors        []string `json:"errors"`
}

// HealthChecker reports publish activity and broker connectivity. Failed
// publishes are reported but never make the pipeline unhealthy on their own.
type HealthChecker struct {
	publisher *CountingPublisher
	conn      ConnectionReporter
}

// NewHealthChecker creates a checker. conn may be nil when no broker is used.
func NewHealthChecker(publisher *CountingPublisher, conn ConnectionReporter) *HealthChecker {
	return &HealthChecker{publisher: publisher, conn: conn}
}

func (h *HealthChecker) Check() HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Stats:   h.publisher.Stats(),
		Errors:  []string{},
	}

	if h.conn != nil {
		connected := h.conn.Connected()
		status.NATSConnected = &connected
		if !connected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if status.LastError != "" {
		status.Errors = append(status.Errors, "last publish failed: "+status.LastError)
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode event health")
	}
}
