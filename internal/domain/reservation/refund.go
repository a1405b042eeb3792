package reservation

import (
	"time"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

// RefundAmount applies the property's cancellation policy to the reservation
// total. Lead time is measured from the cancellation instant to midnight UTC
// of the check-in date.
//
//	flexible:       full refund ≥24h before check-in, nothing after
//	moderate:       full refund ≥5 days before check-in, 50% after
//	strict:         50% refund ≥7 days before check-in, nothing after
//	non_refundable: nothing, ever
func RefundAmount(policy catalog.CancellationPolicy, total money.Money, cancelAt time.Time, checkIn dates.Date) money.Money {
	lead := checkIn.StartOfDay().Sub(cancelAt.UTC())
	switch policy {
	case catalog.PolicyFlexible:
		if lead >= 24*time.Hour {
			return total
		}
		return money.Zero(total.Currency)
	case catalog.PolicyModerate:
		if lead >= 5*24*time.Hour {
			return total
		}
		return total.Percent(50)
	case catalog.PolicyStrict:
		if lead >= 7*24*time.Hour {
			return total.Percent(50)
		}
		return money.Zero(total.Currency)
	default:
		return money.Zero(total.Currency)
	}
}
