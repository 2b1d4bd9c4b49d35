package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/retry"
)

const DefaultExchange = "reservations"

// message is the wire form of a lifecycle event.
type message struct {
	ID            string            `json:"id"`
	Type          booking.EventType `json:"type"`
	ReservationID string            `json:"reservationId"`
	ListingID     string            `json:"listingId,omitempty"`
	CheckIn       string            `json:"checkIn,omitempty"`
	CheckOut      string            `json:"checkOut,omitempty"`
	Guests        int               `json:"guests,omitempty"`
	Total         float64           `json:"total,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func toMessage(e *booking.Event) message {
	//nolint:exhaustruct
	m := message{
		ID:            e.ID,
		Type:          e.Type,
		ReservationID: e.ReservationID,
		CreatedAt:     e.CreatedAt,
	}

	if r := e.Reservation; r != nil {
		m.ListingID = r.Listing.ID
		m.CheckIn = r.Range.CheckIn.Format(time.DateOnly)
		m.CheckOut = r.Range.CheckOut.Format(time.DateOnly)
		m.Guests = r.Guests
		m.Total = r.Price.Total
	}

	return m
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends events to a durable fanout exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	l        *logger.Logger
	conn     *amqp.Connection
	ch       channel
	exchange string
}

type AMQPConfig struct {
	L        *logger.Logger
	URL      string
	Exchange string
	Retry    retry.Policy
}

func DialAMQP(ctx context.Context, conf AMQPConfig) (*AMQPPublisher, error) {
	var conn *amqp.Connection

	err := retry.Do(ctx, conf.Retry, func(context.Context) error {
		var err error

		conn, err = amqp.Dial(conf.URL)
		if err != nil {
			conf.L.LogErrorf("Could not connect to broker: %v", err)
		}

		return err //nolint:wrapcheck
	})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	p, err := NewAMQPPublisher(conf.L, ch, conf.Exchange)
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	p.conn = conn

	return p, nil
}

// NewAMQPPublisher declares the exchange on ch and publishes through it.
func NewAMQPPublisher(l *logger.Logger, ch channel, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	l.LogInfo("Exchange '%s' (fanout) declared", exchange)

	//nolint:exhaustruct
	return &AMQPPublisher{l: l, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(_ context.Context, event *booking.Event) error {
	body, err := json.Marshal(toMessage(event))
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	//nolint:exhaustruct
	err = p.ch.Publish(p.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s to exchange %s: %w", event.Type, p.exchange, err)
	}

	p.l.LogDebug("Event %s published to exchange '%s'", event.ID, p.exchange)

	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("close amqp channel: %w", err)
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close amqp connection: %w", err)
		}
	}

	return nil
}

// LogPublisher writes events to the log when no broker is configured.
type LogPublisher struct {
	l *logger.Logger
}

func NewLogPublisher(l *logger.Logger) *LogPublisher {
	return &LogPublisher{l: l}
}

func (p *LogPublisher) Publish(_ context.Context, event *booking.Event) error {
	m := toMessage(event)

	p.l.With(logger.Fields{
		"event_id":       m.ID,
		"event_type":     m.Type,
		"reservation_id": m.ReservationID,
		"listing_id":     m.ListingID,
	}).LogInfo("Reservation event")

	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
