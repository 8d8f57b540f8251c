package billing

import (
	"example.com/dairydesk/services/billing/internal/models"
)

// ResolveRate returns the effective price per liter for a customer:
// the customer's own rate when set, otherwise the farm-wide default.
func ResolveRate(customer *models.Customer, settings *models.Settings) float64 {
	if customer.PricePerLiter != nil {
		return *customer.PricePerLiter
	}
	return settings.GlobalPricePerLiter
}
