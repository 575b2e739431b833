package recurlywebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/recurly-gateway/internal/events"
	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
	"go.uber.org/multierr"
)

const (
	msgWrongKey       = "Incoming push notification did not contain the proper URL key."
	msgWrongSubdomain = "Incoming push notification did not contain the proper subdomain key."
)

type accountGateway interface {
	GetAccount(ctx context.Context, code string) (*recurly.Account, error)
}

type accountResolver interface {
	Resolve(ctx context.Context, account recurly.Account) (*models.AccountRecord, error)
}

type notificationRecorder interface {
	IncNotification(kind, outcome string)
}

// ServiceParams groups dependencies for push processing.
type ServiceParams struct {
	Gateway     accountGateway
	Accounts    accountResolver
	Events      events.Emitter
	Metrics     notificationRecorder
	ListenerKey string
	Subdomain   string
	Logging     bool
	Logger      *logger.Logger
}

// Service processes gateway push notifications.
type Service struct {
	gateway     accountGateway
	accounts    accountResolver
	events      events.Emitter
	metrics     notificationRecorder
	listenerKey string
	subdomain   string
	logging     bool
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("billing gateway required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account index required")
	}
	emitter := params.Events
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Service{
		gateway:     params.Gateway,
		accounts:    params.Accounts,
		events:      emitter,
		metrics:     params.Metrics,
		listenerKey: strings.TrimSpace(params.ListenerKey),
		subdomain:   strings.TrimSpace(params.Subdomain),
		logging:     params.Logging,
		logg:        params.Logger,
	}, nil
}

// Verify checks the listener URL. An empty subdomain means the default site.
func (s *Service) Verify(ctx context.Context, key, subdomain string) error {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain != "" && subdomain != s.subdomain {
		s.warn(ctx, msgWrongSubdomain)
		return pkgerrors.New(pkgerrors.CodeForbidden, msgWrongSubdomain)
	}
	if s.listenerKey == "" || key != s.listenerKey {
		s.warn(ctx, msgWrongKey)
		return pkgerrors.New(pkgerrors.CodeForbidden, msgWrongKey)
	}
	return nil
}

// Parse decodes a push document; empty or typeless bodies are rejected.
func (s *Service) Parse(ctx context.Context, body []byte) (*recurly.Notification, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Empty or invalid notification.")
	}
	notification, err := recurly.ParseNotification(body)
	if err != nil || notification.Type == "" {
		if s.metrics != nil {
			s.metrics.IncNotification("unknown", "invalid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Empty or invalid notification.")
	}
	if s.logging && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"notification_type": notification.Type.String(),
			"account_code":      notification.Account.Code,
		})
		s.logg.Info(logCtx, "push.received")
	}
	return notification, nil
}

// Handle refreshes the local account record for account-bearing notifications
// and publishes every notification as a lifecycle event. Both steps run; their
// errors are combined.
func (s *Service) Handle(ctx context.Context, notification *recurly.Notification) error {
	if notification == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "Empty or invalid notification.")
	}

	var errs error
	if notification.Type.SyncsAccount() {
		errs = multierr.Append(errs, s.resync(ctx, notification))
	}
	errs = multierr.Append(errs, s.events.Emit(ctx, eventFor(notification)))

	outcome := "processed"
	if errs != nil {
		outcome = "failed"
	}
	if s.metrics != nil {
		s.metrics.IncNotification(notification.Type.String(), outcome)
	}
	return errs
}

func (s *Service) resync(ctx context.Context, notification *recurly.Notification) error {
	code := notification.Account.Code
	if code == "" {
		return nil
	}
	account, err := s.gateway.GetAccount(ctx, code)
	if err != nil || account == nil {
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithAccountCode(ctx, code), fmt.Sprintf("push account fetch failed, using payload: %v", err))
		}
		account = payloadAccount(notification.Account)
	}
	if _, err := s.accounts.Resolve(ctx, *account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resync account record")
	}
	return nil
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func payloadAccount(payload recurly.NotificationAccount) *recurly.Account {
	return &recurly.Account{
		Code:      payload.Code,
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Company:   payload.CompanyName,
	}
}

func eventFor(notification *recurly.Notification) events.Event {
	data := map[string]any{"notification_type": notification.Type.String()}
	event := events.Event{
		Type:        events.PushType(notification.Type.EventName()),
		AccountCode: notification.Account.Code,
	}
	if sub := notification.Subscription; sub != nil {
		event.SubscriptionUUID = sub.UUID
		data["plan_code"] = sub.PlanCode
		data["state"] = sub.State
		if sub.CurrentPeriodEndsAt != nil {
			data["current_period_ends_at"] = sub.CurrentPeriodEndsAt
		}
	}
	if invoice := notification.Invoice; invoice != nil {
		data["invoice_number"] = invoice.Number
		data["invoice_state"] = invoice.State
	}
	event.Data = data
	return event
}
