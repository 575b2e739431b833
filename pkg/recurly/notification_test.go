package recurly

import (
	"testing"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

const newSubscriptionXML = `<?xml version="1.0" encoding="UTF-8"?>
<new_subscription_notification>
  <account>
    <account_code>user-42</account_code>
    <username nil="true"></username>
    <email>verena@example.com</email>
    <first_name>Verena</first_name>
    <last_name>Example</last_name>
    <company_name nil="true"></company_name>
  </account>
  <subscription>
    <plan>
      <plan_code>gold</plan_code>
      <name>Gold</name>
    </plan>
    <uuid>8047cb4fd5f874b14d713d785436ebd3</uuid>
    <state>active</state>
    <quantity type="integer">1</quantity>
    <total_amount_in_cents type="integer">2000</total_amount_in_cents>
    <activated_at type="datetime">2024-07-22T20:42:05Z</activated_at>
    <canceled_at nil="true" type="datetime"></canceled_at>
    <current_period_ends_at type="datetime">2024-08-22T20:42:05Z</current_period_ends_at>
  </subscription>
</new_subscription_notification>`

func TestParseNotificationReadsRootAndAccount(t *testing.T) {
	n, err := ParseNotification([]byte(newSubscriptionXML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Type != enums.NotificationNewSubscription {
		t.Fatalf("unexpected type %q", n.Type)
	}
	if n.Account.Code != "user-42" || n.Account.Email != "verena@example.com" || n.Account.Username != "" {
		t.Fatalf("unexpected account %+v", n.Account)
	}
	if n.Subscription == nil || n.Subscription.PlanCode != "gold" || n.Subscription.TotalAmountInCents != 2000 {
		t.Fatalf("unexpected subscription %+v", n.Subscription)
	}
	if n.Subscription.ActivatedAt == nil || n.Subscription.CanceledAt != nil {
		t.Fatalf("unexpected timestamps %+v", n.Subscription)
	}
	if n.Invoice != nil {
		t.Fatalf("no invoice block expected")
	}
}

func TestParseNotificationAccountOnly(t *testing.T) {
	body := `<canceled_account_notification><account><account_code>org-7</account_code></account></canceled_account_notification>`
	n, err := ParseNotification([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !n.Type.SyncsAccount() || n.Subscription != nil {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.Account.AccountInput().Code != "org-7" {
		t.Fatalf("unexpected account input")
	}
}

func TestParseNotificationRejectsEmptyBody(t *testing.T) {
	for _, body := range []string{"", "   ", "<broken"} {
		_, err := ParseNotification([]byte(body))
		if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("body %q: expected validation error, got %v", body, err)
		}
	}
}
