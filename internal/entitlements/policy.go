package entitlements

import (
	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/states"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role enums.ActorRole
}

// IsAdmin reports whether the actor may manage billing for any owner.
func (a Actor) IsAdmin() bool {
	return a.Role.AdministersBilling()
}

// Config is the site policy consulted by every decision.
type Config struct {
	Mode         enums.SubscriptionMode
	CancelPolicy enums.CancelPolicy
	EntityType   string
}

func (c Config) multiple() bool {
	return c.Mode == enums.SubscriptionModeMultiple
}

// Context is what the caller already knows about the owner.
type Context struct {
	HasAccount   bool
	EnabledPlans int
	// Latest is the unsorted state set of the latest active subscription.
	Latest      *states.Set
	ActiveCount int
	SignupPath  bool
	PastDue     bool
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

func decide(ok bool, reason string) Decision {
	if ok {
		return allow()
	}
	return deny(reason)
}

// Err converts a denial into a forbidden error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	reason := d.Reason
	if reason == "" {
		reason = "operation not permitted"
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, reason)
}

type rule struct {
	matches func(op enums.Operation) bool
	decide  func(cfg Config, dc Context, op enums.Operation) Decision
}

func only(ops ...enums.Operation) func(enums.Operation) bool {
	return func(op enums.Operation) bool {
		for _, candidate := range ops {
			if candidate == op {
				return true
			}
		}
		return false
	}
}

// rules are evaluated in order; the first match governs.
var rules = []rule{
	{
		matches: only(enums.OperationMain),
		decide: func(_ Config, dc Context, _ enums.Operation) Decision {
			return decide(dc.HasAccount || dc.EnabledPlans > 0, "no billing account and no plans available")
		},
	},
	{
		matches: only(enums.OperationSelectPlan),
		decide: func(cfg Config, dc Context, _ enums.Operation) Decision {
			return decide((dc.EnabledPlans > 0 && dc.SignupPath) || cfg.multiple(), "plan selection unavailable")
		},
	},
	{
		matches: only(enums.OperationList),
		decide: func(cfg Config, dc Context, _ enums.Operation) Decision {
			return decide((dc.HasAccount && dc.SignupPath) || (cfg.multiple() && dc.ActiveCount >= 1), "subscription list unavailable")
		},
	},
	{
		matches: enums.Operation.IsLatestShortcut,
		decide:  decideLatest,
	},
	{
		matches: only(enums.OperationSignup),
		decide: func(cfg Config, dc Context, _ enums.Operation) Decision {
			if cfg.multiple() {
				return allow()
			}
			return decide(!dc.HasAccount || dc.ActiveCount == 0, "owner already has a subscription")
		},
	},
}

func decideLatest(cfg Config, dc Context, op enums.Operation) Decision {
	if cfg.multiple() {
		return deny("latest subscription shortcuts require single-plan mode")
	}
	if !dc.HasAccount || dc.Latest == nil {
		return deny("no active subscription")
	}
	switch op {
	case enums.OperationChangePlanLatest:
		return decide(dc.EnabledPlans > 0, "no plans available")
	case enums.OperationCancelLatest:
		return decide(dc.Latest.Primary() == enums.SubscriptionStateActive, "subscription is not active")
	case enums.OperationReactivateLatest:
		return decide(dc.Latest.Primary() == enums.SubscriptionStateCanceled, "subscription is not canceled")
	}
	return deny("unknown operation")
}

// Authorize decides whether actor may perform op for owner. It never calls
// out; everything it needs is in cfg and dc.
func Authorize(op enums.Operation, owner accounts.Owner, actor Actor, cfg Config, dc Context) Decision {
	if d := checkOwnerIdentity(owner, actor); !d.Allowed {
		return d
	}
	for _, r := range rules {
		if r.matches(op) {
			return r.decide(cfg, dc, op)
		}
	}
	return decide(dc.HasAccount, "no billing account")
}

// checkOwnerIdentity requires a user owner to be the actor, unless the actor
// administers billing.
func checkOwnerIdentity(owner accounts.Owner, actor Actor) Decision {
	if !owner.IsUser() || actor.IsAdmin() {
		return allow()
	}
	return decide(actor.ID != "" && actor.ID == owner.ID, "actor does not own this billing account")
}
