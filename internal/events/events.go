package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/google/uuid"
)

const envelopeVersion = 1

// Type names a lifecycle event.
type Type string

const (
	TypeSubscriptionCreated     Type = "subscription.created"
	TypeSubscriptionCanceled    Type = "subscription.canceled"
	TypeSubscriptionTerminated  Type = "subscription.terminated"
	TypeSubscriptionReactivated Type = "subscription.reactivated"
	TypeSubscriptionChanged     Type = "subscription.changed"
	TypeCouponRedeemed          Type = "coupon.redeemed"
	TypeAccountClosed           Type = "account.closed"
)

// PushType prefixes gateway notification names, e.g. "push.renewed_subscription".
func PushType(name string) Type {
	return Type("push." + name)
}

// ActorRef identifies who triggered the event.
type ActorRef struct {
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Event is one lifecycle fact.
type Event struct {
	Type             Type
	AccountCode      string
	SubscriptionUUID string
	Actor            *ActorRef
	Data             any
}

// Envelope is the published message body.
type Envelope struct {
	Version          int             `json:"version"`
	EventID          string          `json:"eventId"`
	Type             Type            `json:"type"`
	OccurredAt       time.Time       `json:"occurredAt"`
	AccountCode      string          `json:"accountCode,omitempty"`
	SubscriptionUUID string          `json:"subscriptionUuid,omitempty"`
	Actor            *ActorRef       `json:"actor,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`
}

// Emitter publishes lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Publisher writes events to the lifecycle topic and waits for the server ack.
type Publisher struct {
	pub  publisher
	logg *logger.Logger
	now  func() time.Time
}

// NewPublisher wraps a Pub/Sub publisher. A nil publisher yields a Nop emitter.
func NewPublisher(p *gcppubsub.Publisher, logg *logger.Logger) Emitter {
	if p == nil {
		return Nop{}
	}
	return newPublisher(&gcpPublisher{Publisher: p}, logg)
}

func newPublisher(p publisher, logg *logger.Logger) *Publisher {
	return &Publisher{pub: p, logg: logg, now: time.Now}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Type == "" {
		return errors.New("event type required")
	}
	env := Envelope{
		Version:          envelopeVersion,
		EventID:          uuid.NewString(),
		Type:             event.Type,
		OccurredAt:       p.now().UTC(),
		AccountCode:      event.AccountCode,
		SubscriptionUUID: event.SubscriptionUUID,
		Actor:            event.Actor,
	}
	if event.Data != nil {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		env.Data = data
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":     env.EventID,
			"event_type":   string(env.Type),
			"account_code": env.AccountCode,
		},
	}
	result := p.pub.Publish(ctx, msg)
	if result == nil {
		return errors.New("publish result is nil")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", env.Type, err)
	}
	if p.logg != nil {
		ctx = p.logg.WithFields(ctx, map[string]any{"event_id": env.EventID, "event_type": string(env.Type)})
		p.logg.Info(ctx, "lifecycle event published")
	}
	return nil
}

// Nop discards events. Used when no lifecycle topic is configured.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
