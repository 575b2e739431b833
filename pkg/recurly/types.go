package recurly

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Address is the postal address attached to an account.
type Address struct {
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Account is a remote billing account, identified by its account code.
type Account struct {
	ID                string     `json:"id,omitempty"`
	Code              string     `json:"code"`
	State             string     `json:"state,omitempty"`
	Username          string     `json:"username,omitempty"`
	Email             string     `json:"email,omitempty"`
	FirstName         string     `json:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"`
	Company           string     `json:"company,omitempty"`
	Address           *Address   `json:"address,omitempty"`
	HasPastDueInvoice bool       `json:"has_past_due_invoice,omitempty"`
	HostedLoginToken  string     `json:"hosted_login_token,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
}

// AccountInput carries the writable account fields.
type AccountInput struct {
	Code        string            `json:"code,omitempty"`
	Username    string            `json:"username,omitempty"`
	Email       string            `json:"email,omitempty"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Company     string            `json:"company,omitempty"`
	Address     *Address          `json:"address,omitempty"`
	BillingInfo *BillingInfoInput `json:"billing_info,omitempty"`
}

// BillingInfoInput updates billing details from a tokenized payment form.
type BillingInfoInput struct {
	TokenID string `json:"token_id"`
}

// BillingInfo is the stored payment method summary.
type BillingInfo struct {
	ID            string `json:"id,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	PaymentMethod struct {
		CardType string `json:"card_type,omitempty"`
		LastFour string `json:"last_four,omitempty"`
		ExpMonth int    `json:"exp_month,omitempty"`
		ExpYear  int    `json:"exp_year,omitempty"`
	} `json:"payment_method"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// PlanPricing is one currency row of a plan price.
type PlanPricing struct {
	Currency   string          `json:"currency"`
	UnitAmount decimal.Decimal `json:"unit_amount"`
	SetupFee   decimal.Decimal `json:"setup_fee"`
}

// Plan is a read-only catalog entry.
type Plan struct {
	ID             string        `json:"id,omitempty"`
	Code           string        `json:"code"`
	Name           string        `json:"name"`
	State          string        `json:"state,omitempty"`
	Description    string        `json:"description,omitempty"`
	IntervalLength int           `json:"interval_length"`
	IntervalUnit   string        `json:"interval_unit"`
	TrialLength    int           `json:"trial_length"`
	TrialUnit      string        `json:"trial_unit"`
	Currencies     []PlanPricing `json:"currencies"`
}

// Price returns the plan's unit amount in the given currency.
func (p Plan) Price(currency string) (decimal.Decimal, bool) {
	for _, row := range p.Currencies {
		if strings.EqualFold(row.Currency, currency) {
			return row.UnitAmount, true
		}
	}
	return decimal.Zero, false
}

// SetupFee returns the plan's setup fee in the given currency.
func (p Plan) SetupFee(currency string) (decimal.Decimal, bool) {
	for _, row := range p.Currencies {
		if strings.EqualFold(row.Currency, currency) {
			return row.SetupFee, true
		}
	}
	return decimal.Zero, false
}

// AddOn is a plan add-on.
type AddOn struct {
	ID         string        `json:"id,omitempty"`
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	PlanID     string        `json:"plan_id,omitempty"`
	Currencies []PlanPricing `json:"currencies"`
}

// PlanRef is the embedded plan summary on a subscription.
type PlanRef struct {
	ID   string `json:"id,omitempty"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// AccountRef is the embedded account summary on subscriptions and invoices.
type AccountRef struct {
	ID    string `json:"id,omitempty"`
	Code  string `json:"code"`
	Email string `json:"email,omitempty"`
}

// SubscriptionAddOn is an add-on line on a subscription.
type SubscriptionAddOn struct {
	AddOn      PlanRef         `json:"add_on"`
	UnitAmount decimal.Decimal `json:"unit_amount"`
	Quantity   int             `json:"quantity"`
}

// PendingChange describes a plan change scheduled for renewal.
type PendingChange struct {
	ID         string           `json:"id,omitempty"`
	ActivateAt *time.Time       `json:"activate_at,omitempty"`
	Plan       PlanRef          `json:"plan"`
	UnitAmount *decimal.Decimal `json:"unit_amount,omitempty"`
	Quantity   int              `json:"quantity,omitempty"`
}

// Subscription is the authoritative remote subscription. Optional fields are pointers.
type Subscription struct {
	ID                     string              `json:"id,omitempty"`
	UUID                   string              `json:"uuid"`
	Account                AccountRef          `json:"account"`
	Plan                   PlanRef             `json:"plan"`
	State                  string              `json:"state"`
	Currency               string              `json:"currency"`
	UnitAmount             decimal.Decimal     `json:"unit_amount"`
	Quantity               int                 `json:"quantity"`
	AddOns                 []SubscriptionAddOn `json:"add_ons,omitempty"`
	ActivatedAt            *time.Time          `json:"activated_at,omitempty"`
	CurrentPeriodStartedAt *time.Time          `json:"current_period_started_at,omitempty"`
	CurrentPeriodEndsAt    *time.Time          `json:"current_period_ends_at,omitempty"`
	TrialStartedAt         *time.Time          `json:"trial_started_at,omitempty"`
	TrialEndsAt            *time.Time          `json:"trial_ends_at,omitempty"`
	CanceledAt             *time.Time          `json:"canceled_at,omitempty"`
	ExpiresAt              *time.Time          `json:"expires_at,omitempty"`
	TotalBillingCycles     *int                `json:"total_billing_cycles,omitempty"`
	PendingChange          *PendingChange      `json:"pending_change,omitempty"`
}

// SubscriptionInput creates a subscription, creating the account when it does not exist yet.
type SubscriptionInput struct {
	PlanCode    string       `json:"plan_code"`
	Currency    string       `json:"currency"`
	Account     AccountInput `json:"account"`
	CouponCodes []string     `json:"coupon_codes,omitempty"`
	Quantity    int          `json:"quantity,omitempty"`
}

// CouponCurrency is a fixed discount amount in one currency.
type CouponCurrency struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// CouponDiscount describes how a coupon discounts.
type CouponDiscount struct {
	Type       string           `json:"type"`
	Percent    *int             `json:"percent,omitempty"`
	Currencies []CouponCurrency `json:"currencies,omitempty"`
}

const (
	DiscountTypePercent   = "percent"
	DiscountTypeFixed     = "fixed"
	DiscountTypeFreeTrial = "free_trial"

	CouponStateRedeemable = "redeemable"
)

// Coupon is a remote coupon definition.
type Coupon struct {
	ID                string         `json:"id,omitempty"`
	Code              string         `json:"code"`
	Name              string         `json:"name"`
	State             string         `json:"state"`
	Discount          CouponDiscount `json:"discount"`
	AppliesToAllPlans bool           `json:"applies_to_all_plans"`
	Plans             []PlanRef      `json:"plans,omitempty"`
}

// ValidForCurrency reports whether a fixed-amount coupon has a discount in currency.
// Percent and free-trial coupons are currency independent.
func (c Coupon) ValidForCurrency(currency string) bool {
	if c.Discount.Type != DiscountTypeFixed {
		return true
	}
	for _, row := range c.Discount.Currencies {
		if strings.EqualFold(row.Currency, currency) {
			return true
		}
	}
	return false
}

// ValidForPlan reports whether the coupon applies to planCode.
func (c Coupon) ValidForPlan(planCode string) bool {
	if c.AppliesToAllPlans {
		return true
	}
	for _, plan := range c.Plans {
		if plan.Code == planCode {
			return true
		}
	}
	return false
}

// CouponRedemption is a coupon applied to an account.
type CouponRedemption struct {
	ID        string     `json:"id"`
	Coupon    PlanRef    `json:"coupon"`
	State     string     `json:"state"`
	Currency  string     `json:"currency,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// LineItem is one invoice line.
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
}

// Invoice is a remote invoice.
type Invoice struct {
	ID        string          `json:"id,omitempty"`
	Number    string          `json:"number"`
	State     string          `json:"state"`
	Account   AccountRef      `json:"account"`
	Currency  string          `json:"currency"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	ClosedAt  *time.Time      `json:"closed_at,omitempty"`
	LineItems struct {
		Data []LineItem `json:"data"`
	} `json:"line_items"`
}

const (
	InvoiceStatePaid      = "paid"
	InvoiceStateCollected = "collected"
	InvoiceStatePastDue   = "past_due"
)

// Settled reports whether the invoice needs no further payment.
func (i Invoice) Settled() bool {
	switch i.State {
	case InvoiceStatePaid, InvoiceStateCollected, "closed", "voided":
		return true
	}
	return false
}
