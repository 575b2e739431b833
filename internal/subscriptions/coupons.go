package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/internal/events"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

const invalidCouponMessage = "The coupon code you have entered is not valid."

// validateCoupon checks the coupon against the request currency and the
// plan it would apply to. It never mutates anything.
func (s *service) validateCoupon(ctx context.Context, code, currency, planCode string) (*recurly.Coupon, error) {
	coupon, err := s.gateway.GetCoupon(ctx, code)
	if err != nil {
		if recurly.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, invalidCouponMessage)
		}
		return nil, err
	}
	if coupon.State != "" && coupon.State != recurly.CouponStateRedeemable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "This coupon is no longer redeemable.")
	}
	if !coupon.ValidForCurrency(currency) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("The coupon %s is not valid for the %s currency.", coupon.Code, currency))
	}
	if planCode != "" && !coupon.ValidForPlan(planCode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("The coupon %s is not valid for this plan.", coupon.Code))
	}
	return coupon, nil
}

// RedeemCoupon applies a coupon to the owner's account. The new coupon is
// validated before an existing redemption is touched, and replacing one
// requires an explicit confirmation.
func (s *service) RedeemCoupon(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, input CouponInput) (*CouponResult, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: enums.OperationRedeemCoupon})
	if err != nil {
		return nil, err
	}

	currency := s.currency(input.Currency)
	planCode := ""
	if acc.latest != nil {
		planCode = acc.latest.Plan.Code
		if input.Currency == "" && acc.latest.Currency != "" {
			currency = acc.latest.Currency
		}
	}
	coupon, err := s.validateCoupon(ctx, code, currency, planCode)
	if err != nil {
		return nil, err
	}

	existing, err := s.gateway.GetActiveRedemption(ctx, acc.accountCode())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Coupon.Code == coupon.Code {
			return &CouponResult{ExistingCode: existing.Coupon.Code, Message: "This coupon is already applied to your account."}, nil
		}
		if !input.Confirm {
			return &CouponResult{
				NeedsConfirmation: true,
				ExistingCode:      existing.Coupon.Code,
				Message:           fmt.Sprintf("Your account already has the coupon %s applied. Redeeming %s will replace it.", existing.Coupon.Code, coupon.Code),
			}, nil
		}
		if err := s.gateway.DeleteActiveRedemption(ctx, acc.accountCode()); err != nil {
			s.record(TransitionCoupon, err)
			return nil, err
		}
	}

	redemption, err := s.gateway.RedeemCoupon(ctx, acc.accountCode(), coupon.Code, currency)
	s.record(TransitionCoupon, err)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, acc, events.TypeCouponRedeemed, "", map[string]any{
		"coupon_code": coupon.Code,
		"replaced":    existingCode(existing),
		"currency":    currency,
	})

	result := &CouponResult{RedeemedCode: coupon.Code, Message: fmt.Sprintf("The coupon %s has been applied to your account.", coupon.Name)}
	if redemption != nil && redemption.Coupon.Code != "" {
		result.RedeemedCode = redemption.Coupon.Code
	}
	if existing != nil {
		result.ExistingCode = existing.Coupon.Code
	}
	return result, nil
}

func existingCode(r *recurly.CouponRedemption) string {
	if r == nil {
		return ""
	}
	return r.Coupon.Code
}
