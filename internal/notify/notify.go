// Package notify publishes build summaries to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Summary is the notification payload for one run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Site       string    `json:"site"`
	Outcome    string    `json:"outcome"`
	Start      time.Time `json:"start"`
	DurationMS int64     `json:"duration_ms"`
	Revision   string    `json:"revision,omitempty"`
	Records    int       `json:"records"`
	Pages      int       `json:"pages"`
	Assets     int       `json:"assets"`
	Error      string    `json:"error,omitempty"`
}

// Publisher delivers summaries.
type Publisher interface {
	Publish(ctx context.Context, s Summary) error
	Close()
}

// NATSPublisher publishes summaries as JSON on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		return nil, fmt.Errorf("notify subject is required")
	}
	conn, err := nats.Connect(url,
		nats.Name("sitegen"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher connected", logfields.URL(url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends s and flushes so a short-lived CLI process does not drop it.
func (p *NATSPublisher) Publish(ctx context.Context, s Summary) error {
	msg, err := NewMessage(p.subject, s)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish build summary: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush NATS connection: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// NewMessage encodes s as a NATS message. Headers carry the run ID and
// outcome so subscribers can filter without decoding the body.
func NewMessage(subject string, s Summary) (*nats.Msg, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal build summary: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Sitegen-Run-Id", s.RunID)
	msg.Header.Set("Sitegen-Outcome", s.Outcome)
	return msg, nil
}

// NoopPublisher drops every summary.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Summary) error { return nil }
func (NoopPublisher) Close()                                 {}
