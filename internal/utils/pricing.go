package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"parkspace-backend/internal/domain"
)

const (
	// ServiceFeeRate is applied to the base price.
	ServiceFeeRate = 0.10
	// TaxRate is applied to base price plus service fee.
	TaxRate = 0.15
	// FullDayDiscount is the multiplier for each billed 24h block.
	FullDayDiscount = 0.8
	// OvernightHours is the flat number of hours an overnight stay is billed for.
	OvernightHours = 12
)

// BilledHours rounds the duration up to whole hours.
func BilledHours(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours()))
}

// Quote prices a stay at pricePerHour. Amounts keep full precision; round
// with PriceQuote.Rounded at presentation.
func Quote(pricePerHour float64, start, end time.Time, durationType domain.DurationType) (domain.PriceQuote, error) {
	if !end.After(start) {
		return domain.PriceQuote{}, domain.ErrInvalidTimeRange
	}
	if pricePerHour < 0 {
		return domain.PriceQuote{}, domain.Validationf("price per hour must not be negative")
	}

	hours := BilledHours(start, end)

	var base float64
	switch durationType {
	case domain.DurationHourly:
		base = float64(hours) * pricePerHour
	case domain.DurationFullDay:
		days := math.Ceil(float64(hours) / 24)
		base = days * pricePerHour * 24 * FullDayDiscount
	case domain.DurationOvernight:
		base = pricePerHour * OvernightHours
	default:
		return domain.PriceQuote{}, domain.Validationf("unknown duration type %q", durationType)
	}

	fee := base * ServiceFeeRate
	tax := (base + fee) * TaxRate

	return domain.PriceQuote{
		DurationType: durationType,
		BilledHours:  hours,
		PricePerHour: pricePerHour,
		BasePrice:    base,
		ServiceFee:   fee,
		Tax:          tax,
		Total:        base + fee + tax,
	}, nil
}

// ParseClock validates an HH:MM time of day and returns it normalized.
func ParseClock(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", s)
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}
