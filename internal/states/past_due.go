package states

import (
	"context"
	"strings"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

// SubscriptionLister lists an account's subscriptions filtered by state.
type SubscriptionLister interface {
	ListAccountSubscriptions(accountCode, state string) pager.Iterator[recurly.Subscription]
}

// PastDueIndex memoizes the past-due subscription uuids per account code.
// It is built per request and must not outlive it.
type PastDueIndex struct {
	lister SubscriptionLister
	byCode map[string]map[string]struct{}
}

func NewPastDueIndex(lister SubscriptionLister) *PastDueIndex {
	return &PastDueIndex{lister: lister, byCode: map[string]map[string]struct{}{}}
}

// Lookup returns the uuids of the account's past-due subscriptions. The
// gateway is queried at most once per account code.
func (p *PastDueIndex) Lookup(ctx context.Context, accountCode string) (map[string]struct{}, error) {
	accountCode = strings.TrimSpace(accountCode)
	if cached, ok := p.byCode[accountCode]; ok {
		return cached, nil
	}
	found := map[string]struct{}{}
	if p.lister == nil || accountCode == "" {
		p.byCode[accountCode] = found
		return found, nil
	}

	it := p.lister.ListAccountSubscriptions(accountCode, enums.SubscriptionStatePastDue.String())
	for it.Next(ctx) {
		found[it.Item().UUID] = struct{}{}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	p.byCode[accountCode] = found
	return found, nil
}

// Contains reports whether uuid is past due for the account.
func (p *PastDueIndex) Contains(ctx context.Context, accountCode, uuid string) (bool, error) {
	found, err := p.Lookup(ctx, accountCode)
	if err != nil {
		return false, err
	}
	_, ok := found[uuid]
	return ok, nil
}
