// Package notify publishes entitlement changes for other services. Delivery
// is best effort: a failed publish never fails the request that caused it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	RoutingUpgraded   = "entitlement.upgraded"
	RoutingDowngraded = "entitlement.downgraded"
	RoutingExtended   = "entitlement.extended"
)

type EntitlementEvent struct {
	Type          string     `json:"type"`
	Email         string     `json:"email,omitempty"`
	CustomerID    string     `json:"customer_id,omitempty"`
	IsPro         bool       `json:"is_pro"`
	ProExpiresAt  *time.Time `json:"pro_expires_at,omitempty"`
	SourceEventID string     `json:"source_event_id,omitempty"`
	Source        string     `json:"source"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev EntitlementEvent) error
	Close()
}

// LogPublisher stands in when no broker is configured or reachable.
type LogPublisher struct {
	Log *zap.SugaredLogger
}

func (p LogPublisher) Publish(_ context.Context, ev EntitlementEvent) error {
	if p.Log != nil {
		p.Log.Infow("entitlement event (no broker)", "type", ev.Type, "email", ev.Email, "customer", ev.CustomerID, "is_pro", ev.IsPro)
	}
	return nil
}

func (LogPublisher) Close() {}

type AMQPPublisher struct {
	mu       sync.Mutex
	url      string
	exchange string
	dial     func(addr string) (connection, error)
	conn     connection
	channel  channel
	log      *zap.SugaredLogger
}

type connection interface {
	Channel() (channel, error)
	IsClosed() bool
	Close() error
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(addr string) (connection, error) {
	conn, err := amqp.DialConfig(addr, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

func NewAMQP(rawURL, exchange string, log *zap.SugaredLogger) (*AMQPPublisher, error) {
	clean, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return newAMQP(clean, exchange, dialAMQP, log)
}

func newAMQP(addr, exchange string, dial func(string) (connection, error), log *zap.SugaredLogger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: addr, exchange: exchange, dial: dial, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials the broker and declares the exchange. Callers hold mu or
// own p exclusively.
func (p *AMQPPublisher) connect() error {
	conn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}
	p.conn, p.channel = conn, ch
	return nil
}

// reopen replaces the channel, redialing first when the connection is gone.
func (p *AMQPPublisher) reopen() error {
	if p.conn == nil || p.conn.IsClosed() {
		if p.conn != nil {
			p.conn.Close()
		}
		p.conn, p.channel = nil, nil
		if err := p.connect(); err != nil {
			return err
		}
		p.log.Infow("AMQP connection re-established", "exchange", p.exchange)
		return nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	p.channel = ch
	return nil
}

// Open returns an AMQP publisher, or the logging fallback when url is empty
// or the broker cannot be reached at startup.
func Open(rawURL, exchange string, log *zap.SugaredLogger) Publisher {
	if strings.TrimSpace(rawURL) == "" {
		return LogPublisher{Log: log}
	}
	p, err := NewAMQP(rawURL, exchange, log)
	if err != nil {
		log.Warnw("AMQP unavailable, entitlement events will only be logged", "error", err)
		return LogPublisher{Log: log}
	}
	return p
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev EntitlementEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		err = p.channel.PublishWithContext(ctx, p.exchange, ev.Type, false, false, msg)
		if err == nil {
			return nil
		}
	}

	// one retry on a fresh channel, or a fresh connection when it dropped
	if reopenErr := p.reopen(); reopenErr != nil {
		if err == nil {
			err = reopenErr
		}
		return err
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, ev.Type, false, false, msg); err != nil {
		return err
	}
	p.log.Debugw("published entitlement event after reconnect", "type", ev.Type)
	return nil
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []EntitlementEvent
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev EntitlementEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Snapshot() []EntitlementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EntitlementEvent(nil), r.Events...)
}
