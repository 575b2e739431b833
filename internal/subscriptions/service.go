package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/internal/events"
	"github.com/angelmondragon/recurly-gateway/internal/states"
	"github.com/angelmondragon/recurly-gateway/pkg/config"
	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
	"github.com/shopspring/decimal"
)

// LatestUUID addresses the owner's most recent live subscription.
const LatestUUID = "latest"

// Gateway is the slice of the billing gateway the orchestrator needs.
type Gateway interface {
	GetAccount(ctx context.Context, code string) (*recurly.Account, error)
	GetBillingInfo(ctx context.Context, code string) (*recurly.BillingInfo, error)
	GetPlan(ctx context.Context, code string) (*recurly.Plan, error)
	GetSubscription(ctx context.Context, uuid string) (*recurly.Subscription, error)
	ListAccountSubscriptions(accountCode, state string) pager.Iterator[recurly.Subscription]
	CreateSubscription(ctx context.Context, input recurly.SubscriptionInput) (*recurly.Subscription, error)
	CancelSubscription(ctx context.Context, uuid string) (*recurly.Subscription, error)
	TerminateSubscription(ctx context.Context, uuid string, refund enums.RefundMode) (*recurly.Subscription, error)
	ReactivateSubscription(ctx context.Context, uuid string) (*recurly.Subscription, error)
	ChangeSubscription(ctx context.Context, uuid string, input recurly.SubscriptionChangeInput) (*recurly.Subscription, error)
	RefundAmount(ctx context.Context, sub *recurly.Subscription, mode enums.RefundMode) (decimal.Decimal, error)
	GetCoupon(ctx context.Context, code string) (*recurly.Coupon, error)
	GetActiveRedemption(ctx context.Context, accountCode string) (*recurly.CouponRedemption, error)
	DeleteActiveRedemption(ctx context.Context, accountCode string) error
	RedeemCoupon(ctx context.Context, accountCode, couponCode, currency string) (*recurly.CouponRedemption, error)
	DefaultCurrency() string
	HostedURL(path string) string
}

// AccountIndex is the local owner -> account code mapping.
type AccountIndex interface {
	Lookup(ctx context.Context, owner accounts.Owner) (*models.AccountRecord, error)
	Register(ctx context.Context, owner accounts.Owner, account recurly.Account) (*models.AccountRecord, error)
}

type transitionRecorder interface {
	IncTransition(transition, outcome string)
	IncDenial(operation string)
}

// Service exposes the owner-facing subscription lifecycle.
type Service interface {
	Overview(ctx context.Context, owner accounts.Owner, actor entitlements.Actor) (*Overview, error)
	Plans(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, signupPath bool) (*PlanSelection, error)
	Signup(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, input SignupInput) (*Result, error)
	List(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, signupPath bool, page *int) (*SubscriptionPage, error)
	Latest(ctx context.Context, owner accounts.Owner, actor entitlements.Actor) (*SubscriptionView, error)
	CancelOptions(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string, pastDue bool) (*CancelOptions, error)
	Cancel(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string, pastDue bool) (*Result, error)
	Terminate(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string, refund enums.RefundMode, pastDue bool) (*Result, error)
	Reactivate(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string) (*Result, error)
	ChangePlan(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid, planCode string, timeframe *enums.Timeframe) (*Result, error)
	RedeemCoupon(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, input CouponInput) (*CouponResult, error)
	BillingInfo(ctx context.Context, owner accounts.Owner, actor entitlements.Actor) (*BillingSummary, error)
}

// Settings is the subscription policy read from configuration.
type Settings struct {
	Policy             entitlements.Config
	Plans              config.EnabledPlanSet
	UpgradeTimeframe   enums.Timeframe
	DowngradeTimeframe enums.Timeframe
	LiveOnly           bool
	PageSize           int
}

// SettingsFromConfig builds Settings from the loaded configuration.
func SettingsFromConfig(cfg config.SubscriptionsConfig) Settings {
	upgrade, downgrade := cfg.Timeframes()
	return Settings{
		Policy: entitlements.Config{
			Mode:         cfg.SubscriptionMode(),
			CancelPolicy: cfg.CancelPolicy(),
			EntityType:   cfg.EntityType,
		},
		Plans:              cfg.EnabledPlans(),
		UpgradeTimeframe:   upgrade,
		DowngradeTimeframe: downgrade,
		LiveOnly:           cfg.LiveOnly(),
		PageSize:           cfg.ListPageSize,
	}
}

// ServiceParams groups dependencies for the subscriptions service.
type ServiceParams struct {
	Gateway  Gateway
	Accounts AccountIndex
	Events   events.Emitter
	Metrics  transitionRecorder
	Settings Settings
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	gateway  Gateway
	accounts AccountIndex
	events   events.Emitter
	metrics  transitionRecorder
	settings Settings
	deriver  *states.Deriver
	logg     *logger.Logger
}

// NewService builds the subscriptions service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("billing gateway required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account index required")
	}
	if strings.TrimSpace(params.Settings.Policy.EntityType) == "" {
		return nil, fmt.Errorf("entity type required")
	}
	if !params.Settings.Policy.Mode.IsValid() {
		return nil, fmt.Errorf("subscription mode required")
	}
	emitter := params.Events
	if emitter == nil {
		emitter = events.Nop{}
	}
	settings := params.Settings
	if settings.PageSize <= 0 {
		settings.PageSize = config.DefaultListPageSize
	}
	settings.PageSize = pager.NormalizeSize(settings.PageSize)
	if !settings.UpgradeTimeframe.IsValid() {
		settings.UpgradeTimeframe = enums.TimeframeNow
	}
	if !settings.DowngradeTimeframe.IsValid() {
		settings.DowngradeTimeframe = enums.TimeframeRenewal
	}
	return &service{
		gateway:  params.Gateway,
		accounts: params.Accounts,
		events:   emitter,
		metrics:  params.Metrics,
		settings: settings,
		deriver:  states.NewDeriver(params.Clock),
		logg:     params.Logger,
	}, nil
}

// access is everything one request knows about the owner.
type access struct {
	owner   accounts.Owner
	actor   entitlements.Actor
	record  *models.AccountRecord
	pastDue *states.PastDueIndex
	latest  *recurly.Subscription
	states  states.Set
	active  int
	dc      entitlements.Context
}

func (a *access) accountCode() string {
	if a.record == nil {
		return ""
	}
	return a.record.AccountCode
}

type accessRequest struct {
	op         enums.Operation
	signupPath bool
	pastDue    bool
}

// authorize loads the owner context and runs the entitlement policy.
func (s *service) authorize(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, req accessRequest) (*access, error) {
	if owner.Type != s.settings.Policy.EntityType {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner type not billable")
	}
	record, err := s.accounts.Lookup(ctx, owner)
	if err != nil {
		return nil, err
	}
	acc := &access{
		owner:   owner,
		actor:   actor,
		record:  record,
		pastDue: states.NewPastDueIndex(s.gateway),
	}
	acc.dc = entitlements.Context{
		HasAccount:   record != nil,
		EnabledPlans: s.settings.Plans.Len(),
		SignupPath:   req.signupPath,
		PastDue:      req.pastDue,
	}

	if record != nil {
		if err := s.loadLive(ctx, acc); err != nil {
			return nil, err
		}
	}

	decision := entitlements.Authorize(req.op, owner, actor, s.settings.Policy, acc.dc)
	if !decision.Allowed {
		if s.metrics != nil {
			s.metrics.IncDenial(req.op.String())
		}
		return nil, decision.Err()
	}
	return acc, nil
}

// loadLive counts the owner's live subscriptions and derives the states of
// the most recent one.
func (s *service) loadLive(ctx context.Context, acc *access) error {
	it := s.gateway.ListAccountSubscriptions(acc.accountCode(), enums.SubscriptionStateLive.String())
	for it.Next(ctx) {
		sub := it.Item()
		if acc.latest == nil {
			latest := sub
			acc.latest = &latest
		}
		acc.active++
	}
	if err := it.Err(); err != nil {
		return err
	}
	acc.dc.ActiveCount = acc.active
	if acc.latest == nil {
		return nil
	}
	set, err := s.deriver.Derive(ctx, acc.latest, acc.pastDue)
	if err != nil {
		return err
	}
	acc.states = set
	acc.dc.Latest = &acc.states
	return nil
}

// target resolves the subscription addressed by uuid. "latest" selects the
// shortcut operation, anything else must belong to the owner's account.
func (s *service) target(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string, shortcut, direct enums.Operation, pastDue bool) (*access, *recurly.Subscription, states.Set, error) {
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription uuid is required")
	}
	op := direct
	if uuid == LatestUUID {
		op = shortcut
	}
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: op, pastDue: pastDue})
	if err != nil {
		return nil, nil, nil, err
	}

	if uuid == LatestUUID {
		if acc.latest == nil {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return acc, acc.latest, acc.states, nil
	}

	sub, err := s.gateway.GetSubscription(ctx, uuid)
	if err != nil {
		return nil, nil, nil, err
	}
	if sub == nil || sub.Account.Code != acc.accountCode() {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	set, err := s.deriver.Derive(ctx, sub, acc.pastDue)
	if err != nil {
		return nil, nil, nil, err
	}
	return acc, sub, set, nil
}

func (s *service) record(transition string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil {
			outcome = strings.ToLower(string(typed.Code()))
		}
	}
	s.metrics.IncTransition(transition, outcome)
}

// emit publishes a lifecycle event. The gateway already applied the change,
// so a publish failure is logged and not returned.
func (s *service) emit(ctx context.Context, acc *access, eventType events.Type, subUUID string, data any) {
	err := s.events.Emit(ctx, events.Event{
		Type:             eventType,
		AccountCode:      acc.accountCode(),
		SubscriptionUUID: subUUID,
		Actor:            &events.ActorRef{UserID: acc.actor.ID, Role: acc.actor.Role.String()},
		Data:             data,
	})
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "event_type", string(eventType)), "lifecycle event publish failed: "+err.Error())
	}
}

func (s *service) currency(requested string) string {
	currency := strings.ToUpper(strings.TrimSpace(requested))
	if currency == "" {
		currency = s.gateway.DefaultCurrency()
	}
	if currency == "" {
		currency = "USD"
	}
	return currency
}
