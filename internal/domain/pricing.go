package domain

import "math"

// PriceQuote keeps full precision. Use Rounded for anything shown or charged.
type PriceQuote struct {
	DurationType DurationType `json:"duration_type"`
	BilledHours  int          `json:"billed_hours"`
	PricePerHour float64      `json:"price_per_hour"`
	BasePrice    float64      `json:"base_price"`
	ServiceFee   float64      `json:"service_fee"`
	Tax          float64      `json:"tax"`
	Total        float64      `json:"total"`
}

// Rounded returns a copy with every monetary amount rounded to cents.
func (q PriceQuote) Rounded() PriceQuote {
	q.BasePrice = RoundCents(q.BasePrice)
	q.ServiceFee = RoundCents(q.ServiceFee)
	q.Tax = RoundCents(q.Tax)
	q.Total = RoundCents(q.Total)
	return q
}

func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
