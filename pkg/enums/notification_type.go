package enums

import "strings"

// NotificationType is the root element of a push notification document.
type NotificationType string

const (
	NotificationNewAccount           NotificationType = "new_account_notification"
	NotificationCanceledAccount      NotificationType = "canceled_account_notification"
	NotificationReactivatedAccount   NotificationType = "reactivated_account_notification"
	NotificationBillingInfoUpdated   NotificationType = "billing_info_updated_notification"
	NotificationNewSubscription      NotificationType = "new_subscription_notification"
	NotificationUpdatedSubscription  NotificationType = "updated_subscription_notification"
	NotificationCanceledSubscription NotificationType = "canceled_subscription_notification"
	NotificationExpiredSubscription  NotificationType = "expired_subscription_notification"
	NotificationRenewedSubscription  NotificationType = "renewed_subscription_notification"
	NotificationPastDueInvoice       NotificationType = "past_due_invoice_notification"
	NotificationSuccessfulPayment    NotificationType = "successful_payment_notification"
	NotificationFailedPayment        NotificationType = "failed_payment_notification"
)

var accountBearingNotifications = []NotificationType{
	NotificationNewAccount,
	NotificationNewSubscription,
	NotificationCanceledAccount,
	NotificationReactivatedAccount,
	NotificationBillingInfoUpdated,
}

func (n NotificationType) String() string {
	return string(n)
}

// SyncsAccount reports whether the notification should refresh the local account record.
func (n NotificationType) SyncsAccount() bool {
	for _, candidate := range accountBearingNotifications {
		if candidate == n {
			return true
		}
	}
	return false
}

// EventName strips the "_notification" suffix, e.g. "new_account".
func (n NotificationType) EventName() string {
	return strings.TrimSuffix(string(n), "_notification")
}
