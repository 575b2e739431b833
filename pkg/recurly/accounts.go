package recurly

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

// GetAccount loads an account by its code.
func (c *Client) GetAccount(ctx context.Context, code string) (*Account, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	var account Account
	if err := c.do(ctx, request{operation: "get_account", method: http.MethodGet, path: accountPath(code)}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateAccount creates a remote account.
func (c *Client) CreateAccount(ctx context.Context, input AccountInput) (*Account, error) {
	if strings.TrimSpace(input.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	var account Account
	if err := c.do(ctx, request{operation: "create_account", method: http.MethodPost, path: "accounts", body: input}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccount pushes changed account fields.
func (c *Client) UpdateAccount(ctx context.Context, code string, input AccountInput) (*Account, error) {
	input.Code = ""
	var account Account
	if err := c.do(ctx, request{operation: "update_account", method: http.MethodPut, path: accountPath(code), body: input}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// DeactivateAccount closes the account and cancels its subscriptions remotely.
func (c *Client) DeactivateAccount(ctx context.Context, code string) error {
	return c.do(ctx, request{operation: "deactivate_account", method: http.MethodDelete, path: accountPath(code)}, nil)
}

// GetBillingInfo loads the stored payment method of an account.
func (c *Client) GetBillingInfo(ctx context.Context, code string) (*BillingInfo, error) {
	var info BillingInfo
	if err := c.do(ctx, request{operation: "get_billing_info", method: http.MethodGet, path: accountPath(code) + "/billing_info"}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateBillingInfo replaces the payment method using a tokenized form submission.
func (c *Client) UpdateBillingInfo(ctx context.Context, code string, input BillingInfoInput) (*BillingInfo, error) {
	if strings.TrimSpace(input.TokenID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing token is required")
	}
	var info BillingInfo
	if err := c.do(ctx, request{operation: "update_billing_info", method: http.MethodPut, path: accountPath(code) + "/billing_info", body: input}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
