package recurly

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
)

// GetPlan loads a plan by code.
func (c *Client) GetPlan(ctx context.Context, code string) (*Plan, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan code is required")
	}
	var plan Plan
	if err := c.do(ctx, request{operation: "get_plan", method: http.MethodGet, path: "plans/code-" + url.PathEscape(code)}, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans walks the active plan catalog.
func (c *Client) ListPlans() pager.Iterator[Plan] {
	query := url.Values{}
	query.Set("state", "active")
	return newList[Plan](c, "list_plans", "plans", query)
}

// GetAddOn loads one add-on of a plan.
func (c *Client) GetAddOn(ctx context.Context, planCode, addOnCode string) (*AddOn, error) {
	var addOn AddOn
	path := "plans/code-" + url.PathEscape(planCode) + "/add_ons/code-" + url.PathEscape(addOnCode)
	if err := c.do(ctx, request{operation: "get_add_on", method: http.MethodGet, path: path}, &addOn); err != nil {
		return nil, err
	}
	return &addOn, nil
}
