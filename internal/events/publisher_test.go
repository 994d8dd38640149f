package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type channelStub struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	exchanges []string
	err       error
	closed    int
}

func (c *channelStub) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.exchanges = append(c.exchanges, exchange)
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *channelStub) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

type committed struct {
	MinisterID string   `json:"minister_id"`
	Inserted   []string `json:"inserted"`
}

func TestAMQPPublisher_PublishJSON(t *testing.T) {
	t.Parallel()

	ch := &channelStub{}
	pub := newPublisherOnChannel(ch, "parish.roster")

	if err := pub.PublishJSON(context.Background(), "availability.committed", committed{
		MinisterID: "m1",
		Inserted:   []string{"2024-06-02|sun9"},
	}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.published))
	}
	if ch.exchanges[0] != "parish.roster" || ch.keys[0] != "availability.committed" {
		t.Fatalf("unexpected routing %s/%s", ch.exchanges[0], ch.keys[0])
	}
	msg := ch.published[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected message properties %+v", msg)
	}
	var decoded committed
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.MinisterID != "m1" || len(decoded.Inserted) != 1 {
		t.Fatalf("unexpected body %s", msg.Body)
	}
}

func TestAMQPPublisher_Errors(t *testing.T) {
	t.Parallel()

	t.Run("broker failure is wrapped", func(t *testing.T) {
		t.Parallel()
		brokerErr := errors.New("channel/connection is not open")
		pub := newPublisherOnChannel(&channelStub{err: brokerErr}, "x")

		err := pub.PublishJSON(context.Background(), "k", map[string]string{"a": "b"})
		if !errors.Is(err, brokerErr) {
			t.Fatalf("expected wrapped broker error, got %v", err)
		}
	})

	t.Run("unencodable payload", func(t *testing.T) {
		t.Parallel()
		ch := &channelStub{}
		pub := newPublisherOnChannel(ch, "x")

		if err := pub.PublishJSON(context.Background(), "k", make(chan int)); err == nil {
			t.Fatalf("expected encoding error")
		}
		if len(ch.published) != 0 {
			t.Fatalf("expected nothing published")
		}
	})

	t.Run("publish after close", func(t *testing.T) {
		t.Parallel()
		ch := &channelStub{}
		pub := newPublisherOnChannel(ch, "x")

		if err := pub.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := pub.Close(); err != nil {
			t.Fatalf("second Close: %v", err)
		}
		if ch.closed != 1 {
			t.Fatalf("expected channel closed once, got %d", ch.closed)
		}
		if err := pub.PublishJSON(context.Background(), "k", 1); !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})
}

func TestLogPublisher(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	pub := NewLogPublisher(logger)

	if err := pub.PublishJSON(context.Background(), "availability.committed", committed{MinisterID: "m7"}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"routing_key":"availability.committed"`) || !strings.Contains(out, `"minister_id":"m7"`) {
		t.Fatalf("unexpected log output %s", out)
	}
}
