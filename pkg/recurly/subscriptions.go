package recurly

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
)

// SubscriptionChangeInput requests a plan change.
type SubscriptionChangeInput struct {
	PlanCode  string          `json:"plan_code"`
	Timeframe enums.Timeframe `json:"timeframe"`
}

// GetSubscription loads a subscription by uuid.
func (c *Client) GetSubscription(ctx context.Context, uuid string) (*Subscription, error) {
	if strings.TrimSpace(uuid) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription uuid is required")
	}
	var sub Subscription
	if err := c.do(ctx, request{operation: "get_subscription", method: http.MethodGet, path: subscriptionPath(uuid)}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListAccountSubscriptions walks an account's subscriptions, optionally filtered by state
// (active, canceled, expired, future, in_trial, live, past_due).
func (c *Client) ListAccountSubscriptions(accountCode, state string) pager.Iterator[Subscription] {
	query := url.Values{}
	if state = strings.TrimSpace(state); state != "" {
		query.Set("state", state)
	}
	query.Set("sort", "created_at")
	query.Set("order", "desc")
	return newList[Subscription](c, "list_account_subscriptions", accountPath(accountCode)+"/subscriptions", query)
}

// CreateSubscription purchases a plan, creating the account inline when needed.
func (c *Client) CreateSubscription(ctx context.Context, input SubscriptionInput) (*Subscription, error) {
	if strings.TrimSpace(input.PlanCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan code is required")
	}
	if strings.TrimSpace(input.Account.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	if input.Currency == "" {
		input.Currency = c.DefaultCurrency()
	}
	var sub Subscription
	if err := c.do(ctx, request{operation: "create_subscription", method: http.MethodPost, path: "subscriptions", body: input}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription stops renewal; the subscription stays active until the period ends.
func (c *Client) CancelSubscription(ctx context.Context, uuid string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, request{operation: "cancel_subscription", method: http.MethodPut, path: subscriptionPath(uuid) + "/cancel"}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// TerminateSubscription ends the subscription immediately with the requested refund.
func (c *Client) TerminateSubscription(ctx context.Context, uuid string, refund enums.RefundMode) (*Subscription, error) {
	query := url.Values{}
	switch refund {
	case enums.RefundModeFull:
		query.Set("refund", "full")
	case enums.RefundModeProrated:
		query.Set("refund", "partial")
	case enums.RefundModeNone:
		query.Set("refund", "none")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported refund mode")
	}
	var sub Subscription
	if err := c.do(ctx, request{operation: "terminate_subscription", method: http.MethodDelete, path: subscriptionPath(uuid), query: query}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ReactivateSubscription resumes renewal of a canceled subscription.
func (c *Client) ReactivateSubscription(ctx context.Context, uuid string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, request{operation: "reactivate_subscription", method: http.MethodPut, path: subscriptionPath(uuid) + "/reactivate"}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ChangeSubscription switches plans now or at renewal.
func (c *Client) ChangeSubscription(ctx context.Context, uuid string, input SubscriptionChangeInput) (*Subscription, error) {
	if strings.TrimSpace(input.PlanCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan code is required")
	}
	if !input.Timeframe.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported timeframe")
	}
	if _, err := c.doChange(ctx, uuid, input); err != nil {
		return nil, err
	}
	// the change endpoint answers with the change record; callers want the subscription
	return c.GetSubscription(ctx, uuid)
}

func (c *Client) doChange(ctx context.Context, uuid string, input SubscriptionChangeInput) (*PendingChange, error) {
	var change PendingChange
	if err := c.do(ctx, request{operation: "change_subscription", method: http.MethodPost, path: subscriptionPath(uuid) + "/change", body: input}, &change); err != nil {
		return nil, err
	}
	return &change, nil
}
