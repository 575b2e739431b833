package recurly

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

type redemptionInput struct {
	CouponID string `json:"coupon_id"`
	Currency string `json:"currency,omitempty"`
}

// GetCoupon loads a coupon by code.
func (c *Client) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	var coupon Coupon
	if err := c.do(ctx, request{operation: "get_coupon", method: http.MethodGet, path: couponPath(code)}, &coupon); err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetActiveRedemption returns the coupon currently applied to the account, or nil.
func (c *Client) GetActiveRedemption(ctx context.Context, accountCode string) (*CouponRedemption, error) {
	var redemption CouponRedemption
	err := c.do(ctx, request{
		operation: "get_active_redemption",
		method:    http.MethodGet,
		path:      accountPath(accountCode) + "/coupon_redemptions/active",
	}, &redemption)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// DeleteActiveRedemption removes the coupon currently applied to the account.
func (c *Client) DeleteActiveRedemption(ctx context.Context, accountCode string) error {
	return c.do(ctx, request{
		operation: "delete_active_redemption",
		method:    http.MethodDelete,
		path:      accountPath(accountCode) + "/coupon_redemptions/active",
	}, nil)
}

// RedeemCoupon applies couponCode to the account.
func (c *Client) RedeemCoupon(ctx context.Context, accountCode, couponCode, currency string) (*CouponRedemption, error) {
	if strings.TrimSpace(couponCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if currency == "" {
		currency = c.DefaultCurrency()
	}
	var redemption CouponRedemption
	if err := c.do(ctx, request{
		operation: "redeem_coupon",
		method:    http.MethodPost,
		path:      accountPath(accountCode) + "/coupon_redemptions",
		body:      redemptionInput{CouponID: "code-" + strings.TrimSpace(couponCode), Currency: currency},
	}, &redemption); err != nil {
		return nil, err
	}
	return &redemption, nil
}

func couponPath(code string) string {
	return "coupons/code-" + url.PathEscape(strings.TrimSpace(code))
}
