// Package notify publishes run-completion events to NATS so downstream
// consumers (dashboards, chat hooks) can react to builds without polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/bookforge/internal/config"
)

// RunEvent is the payload published after each pipeline run.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Revision  string    `json:"revision,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	Published bool      `json:"published"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers run events. Implementations must be non-blocking with
// respect to the pipeline outcome: a failed notification never fails a run.
type Notifier interface {
	RunCompleted(ctx context.Context, event RunEvent)
	Close()
}

// NoopNotifier is used when notifications are not configured.
type NoopNotifier struct{}

func (NoopNotifier) RunCompleted(context.Context, RunEvent) {}
func (NoopNotifier) Close()                                 {}

// NATSNotifier publishes run events to a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to the configured NATS server.
func NewNATSNotifier(cfg *config.NotifyConfig) (*NATSNotifier, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("notifications are disabled")
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("bookforge"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS notifier initialized", "url", cfg.URL, "subject", cfg.Subject)
	return &NATSNotifier{conn: conn, subject: cfg.Subject}, nil
}

// RunCompleted publishes the event. Failures are logged, never propagated;
// the pipeline result must not depend on the notification channel.
func (n *NATSNotifier) RunCompleted(_ context.Context, event RunEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to marshal run event", "error", err)
		return
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		slog.Warn("Failed to publish run event", "subject", n.subject, "error", err)
	}
}

// Close drains the connection.
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		_ = n.conn.Drain()
	}
}
