package subscriptions

import (
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
)

// Links are the follow-up actions offered for a subscription.
type Links struct {
	Change     string `json:"change,omitempty"`
	Cancel     string `json:"cancel,omitempty"`
	Reactivate string `json:"reactivate,omitempty"`
}

// SubscriptionView is a subscription with its derived states rendered.
type SubscriptionView struct {
	UUID            string     `json:"uuid"`
	PlanCode        string     `json:"plan_code"`
	PlanName        string     `json:"plan_name"`
	State           string     `json:"state"`
	States          []string   `json:"states"`
	Label           string     `json:"label"`
	Message         string     `json:"message,omitempty"`
	Currency        string     `json:"currency"`
	Amount          string     `json:"amount"`
	Quantity        int        `json:"quantity"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	PeriodEndHeader string     `json:"period_end_header"`
	PeriodEndsAt    *time.Time `json:"period_ends_at,omitempty"`
	PendingPlanCode string     `json:"pending_plan_code,omitempty"`
	Links           Links      `json:"links"`
}

// SubscriptionPage is one page of an owner's subscriptions.
type SubscriptionPage struct {
	Items   []SubscriptionView `json:"items"`
	Page    int                `json:"page"`
	Size    int                `json:"size"`
	HasMore bool               `json:"has_more"`
}

// Overview is the owner's billing landing page.
type Overview struct {
	OwnerType    string                 `json:"owner_type"`
	OwnerID      string                 `json:"owner_id"`
	AccountCode  string                 `json:"account_code,omitempty"`
	HasAccount   bool                   `json:"has_account"`
	Mode         enums.SubscriptionMode `json:"mode"`
	EnabledPlans []string               `json:"enabled_plans"`
	ActiveCount  int                    `json:"active_count"`
	Latest       *SubscriptionView      `json:"latest,omitempty"`
}

// PlanPrice is one currency row of a plan price.
type PlanPrice struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	SetupFee string `json:"setup_fee,omitempty"`
}

// PlanOption is one selectable plan.
type PlanOption struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Interval    string      `json:"interval"`
	Prices      []PlanPrice `json:"prices"`
	Current     bool        `json:"current"`
}

const (
	SelectionModeSignup = "signup"
	SelectionModeChange = "change"
)

// PlanSelection lists the enabled plans in configured order.
type PlanSelection struct {
	Mode            string       `json:"mode"`
	CurrentUUID     string       `json:"current_uuid,omitempty"`
	CurrentPlanCode string       `json:"current_plan_code,omitempty"`
	Plans           []PlanOption `json:"plans"`
}

// SignupInput starts a new subscription, creating the account if needed.
type SignupInput struct {
	PlanCode     string `json:"plan_code" validate:"required"`
	Currency     string `json:"currency" validate:"omitempty,len=3"`
	BillingToken string `json:"billing_token" validate:"required"`
	CouponCode   string `json:"coupon_code"`
	Email        string `json:"email" validate:"omitempty,email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company"`
	Username     string `json:"username"`
}

// RefundOption is one selectable refund mode.
type RefundOption struct {
	Mode    enums.RefundMode `json:"mode"`
	Amount  string           `json:"amount"`
	Display string           `json:"display"`
}

// CancelOptions describes what the actor may choose when ending a subscription.
type CancelOptions struct {
	SubscriptionUUID string             `json:"subscription_uuid"`
	PlanName         string             `json:"plan_name"`
	Behavior         enums.CancelPolicy `json:"behavior"`
	CanCancel        bool               `json:"can_cancel"`
	CanTerminate     bool               `json:"can_terminate"`
	InTrial          bool               `json:"in_trial"`
	PastDue          bool               `json:"past_due"`
	PeriodEndsAt     *time.Time         `json:"period_ends_at,omitempty"`
	RefundOptions    []RefundOption     `json:"refund_options"`
	Selected         enums.RefundMode   `json:"selected,omitempty"`
	Description      string             `json:"description"`
}

const (
	TransitionSignup     = "signup"
	TransitionCancel     = "cancel"
	TransitionTerminate  = "terminate"
	TransitionReactivate = "reactivate"
	TransitionChangePlan = "change_plan"
	TransitionCoupon     = "redeem_coupon"
)

// Result reports an applied transition.
type Result struct {
	Transition   string            `json:"transition"`
	Subscription *SubscriptionView `json:"subscription,omitempty"`
	RefundMode   enums.RefundMode  `json:"refund_mode,omitempty"`
	Refund       string            `json:"refund,omitempty"`
	Timeframe    enums.Timeframe   `json:"timeframe,omitempty"`
	Upgrade      *bool             `json:"upgrade,omitempty"`
	Message      string            `json:"message"`
}

// CouponInput redeems a coupon on the owner's account.
type CouponInput struct {
	Code     string `json:"code" validate:"required,max=255"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	Confirm  bool   `json:"confirm"`
}

// CouponResult reports a redemption or the confirmation it needs.
type CouponResult struct {
	NeedsConfirmation bool   `json:"needs_confirmation"`
	ExistingCode      string `json:"existing_code,omitempty"`
	RedeemedCode      string `json:"redeemed_code,omitempty"`
	Message           string `json:"message"`
}

// CardSummary is the stored payment method.
type CardSummary struct {
	CardType string `json:"card_type,omitempty"`
	LastFour string `json:"last_four,omitempty"`
	ExpMonth int    `json:"exp_month,omitempty"`
	ExpYear  int    `json:"exp_year,omitempty"`
}

// BillingSummary links to the hosted billing form.
type BillingSummary struct {
	AccountCode string       `json:"account_code"`
	UpdateURL   string       `json:"update_url"`
	Card        *CardSummary `json:"card,omitempty"`
}
