package settlement

import "github.com/worklane/worklane-backend/pkg/enums"

// MapMidtransStatus translates a midtrans transaction_status/fraud_status pair
// into the order status it settles to. The second return is false for tokens
// the platform does not act on.
func MapMidtransStatus(transactionStatus, fraudStatus string) (enums.OrderStatus, bool) {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return enums.OrderStatusWaitingVerification, true
		}
		return enums.OrderStatusPaid, true
	case "settlement":
		return enums.OrderStatusPaid, true
	case "pending":
		return enums.OrderStatusWaitingVerification, true
	case "deny":
		return enums.OrderStatusDenied, true
	case "cancel":
		return enums.OrderStatusCancelled, true
	case "expire":
		return enums.OrderStatusExpired, true
	case "refund", "partial_refund", "chargeback", "partial_chargeback":
		return enums.OrderStatusRefunded, true
	default:
		return "", false
	}
}

// MapStripeEvent translates a stripe event type into the order status it
// settles to. Unlisted event types are acknowledged without action.
func MapStripeEvent(eventType string) (enums.OrderStatus, bool) {
	switch eventType {
	case "checkout.session.completed", "invoice.paid", "payment_intent.succeeded":
		return enums.OrderStatusPaid, true
	case "payment_intent.payment_failed", "invoice.payment_failed":
		return enums.OrderStatusDenied, true
	case "checkout.session.expired":
		return enums.OrderStatusExpired, true
	case "customer.subscription.deleted":
		return enums.OrderStatusCancelled, true
	case "charge.refunded":
		return enums.OrderStatusRefunded, true
	default:
		return "", false
	}
}
