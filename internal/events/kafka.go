package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// Kafka writes events to one topic. Messages are keyed by order id so every
// event of an order lands on the same partition in order.
type Kafka struct {
	writer *kafka.Writer
	logger zerolog.Logger
	closed atomic.Bool
}

var _ Publisher = (*Kafka)(nil)

// NewKafka creates a synchronous writer for topic on brokers.
func NewKafka(brokers []string, topic string, logger zerolog.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf("kafka writer: "+msg, args...)
		}),
		Compression: kafka.Snappy,
	}
	return &Kafka{writer: writer, logger: logger}
}

func toMessage(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event %s: %w", e.Type, err)
	}
	key := e.Type
	if e.OrderID != 0 {
		key = strconv.FormatInt(e.OrderID, 10)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}, nil
}

// Publish blocks until every event is acknowledged.
func (k *Kafka) Publish(ctx context.Context, events ...Event) error {
	if k.closed.Load() {
		return ErrPublisherClosed
	}
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		m, err := toMessage(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (k *Kafka) Close() error {
	if !k.closed.CompareAndSwap(false, true) {
		return nil
	}
	return k.writer.Close()
}
