package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type stubResult struct {
	id  string
	err error
}

func (r stubResult) Get(context.Context) (string, error) { return r.id, r.err }

type stubPublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return stubResult{id: "msg-1", err: p.err}
}

func TestPublisherEmitsEnvelope(t *testing.T) {
	stub := &stubPublisher{}
	pub := newPublisher(stub, nil)
	pub.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	err := pub.Emit(context.Background(), Event{
		Type:             TypeSubscriptionCanceled,
		AccountCode:      "user-7",
		SubscriptionUUID: "abc",
		Actor:            &ActorRef{UserID: "7", Role: "member"},
		Data:             map[string]string{"plan_code": "gold"},
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(stub.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(stub.messages))
	}
	msg := stub.messages[0]
	if msg.Attributes["event_type"] != "subscription.canceled" || msg.Attributes["account_code"] != "user-7" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != envelopeVersion || env.EventID == "" || env.SubscriptionUUID != "abc" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.EventID != msg.Attributes["event_id"] {
		t.Fatalf("event id attribute mismatch")
	}
	if string(env.Data) != `{"plan_code":"gold"}` {
		t.Fatalf("unexpected data %s", env.Data)
	}
}

func TestPublisherSurfacesPublishFailure(t *testing.T) {
	stub := &stubPublisher{err: errors.New("unavailable")}
	pub := newPublisher(stub, nil)

	if err := pub.Emit(context.Background(), Event{Type: PushType("renewed_subscription")}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestPublisherRequiresType(t *testing.T) {
	pub := newPublisher(&stubPublisher{}, nil)
	if err := pub.Emit(context.Background(), Event{}); err == nil {
		t.Fatal("expected missing type error")
	}
}

func TestNewPublisherWithoutTopicIsNop(t *testing.T) {
	emitter := NewPublisher(nil, nil)
	if _, ok := emitter.(Nop); !ok {
		t.Fatalf("expected Nop emitter, got %T", emitter)
	}
	if err := emitter.Emit(context.Background(), Event{Type: TypeAccountClosed}); err != nil {
		t.Fatalf("nop emit: %v", err)
	}
}
