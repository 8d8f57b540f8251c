package billing

import (
	"example.com/dairydesk/services/billing/internal/models"
)

// StatusForPayments derives a bill's settlement status from its amount and
// the sum of its payments. Overpayment stays PAID; a bill without payments
// goes back to GENERATED, which is what regeneration relies on: amounts are
// recalculated but payment history decides the status.
func StatusForPayments(totalAmount, totalPaid float64) models.BillStatus {
	switch {
	case totalPaid <= 0:
		return models.BillStatusGenerated
	case totalPaid >= totalAmount:
		return models.BillStatusPaid
	default:
		return models.BillStatusPartiallyPaid
	}
}
