package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	declared   string
	kind       string
	durable    bool
	declareErr error
	publishErr error
	published  []amqp091.Publishing
	keys       []string
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp091.Table) error {
	f.declared, f.kind, f.durable = name, kind, durable
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, _, key string, _, _ bool, msg amqp091.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishSendsPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "controlants.events", "budget.changed", nil)
	if err != nil {
		t.Fatalf("newPublisher: %v", err)
	}
	if ch.declared != "controlants.events" || ch.kind != "direct" || !ch.durable {
		t.Fatalf("exchange declared as %q/%q durable=%v", ch.declared, ch.kind, ch.durable)
	}

	msg := Message{
		Type:      "status_changed",
		Period:    "2024-02",
		Timestamp: time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC),
		Data:      json.RawMessage(`{"status":"over"}`),
	}
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(ch.published) != 1 || ch.keys[0] != "budget.changed" {
		t.Fatalf("published = %+v keys = %v", ch.published, ch.keys)
	}
	got := ch.published[0]
	if got.ContentType != "application/json" || got.DeliveryMode != amqp091.Persistent || got.Type != "status_changed" {
		t.Fatalf("publishing = %+v", got)
	}
	var decoded Message
	if err := json.Unmarshal(got.Body, &decoded); err != nil {
		t.Fatalf("body: %v", err)
	}
	if decoded.Period != "2024-02" || string(decoded.Data) != `{"status":"over"}` {
		t.Fatalf("decoded = %+v", decoded)
	}

	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("Close: err=%v closed=%v", err, ch.closed)
	}
}

func TestDeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newPublisher(ch, "x", "k", nil); err == nil {
		t.Fatal("expected declare error")
	}
	if !ch.closed {
		t.Fatal("channel left open after failed declare")
	}
}

func TestPublishErrorIsWrapped(t *testing.T) {
	boom := errors.New("channel closed")
	p, err := newPublisher(&fakeChannel{publishErr: boom}, "x", "k", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), Message{Type: "t"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}
