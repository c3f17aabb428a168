// Package availability decides whether a vehicle is free over a date range
// and prices a rental. Everything here is pure: persistence and locking live
// in the service layer.
package availability

import (
	"math"
	"time"

	"github.com/ukydev/vehicle-rental/internal/models"
)

const (
	ServiceFeeRate    = 0.10
	TaxRate           = 0.08
	InsurancePerDay   = 15.0
	ExtraDriverPerDay = 10.0
	ChildSeatPerDay   = 5.0
	DifferentDropoff  = 50.0

	weeklyMultiplier  = 6.5
	monthlyMultiplier = 25.0
	depositMultiplier = 2.0
)

// CheckAvailability reports whether candidate overlaps none of the booked
// intervals. When exclude is non-nil, one entry exactly equal to it is
// ignored; updates use this to skip the booking's own reservation.
func CheckAvailability(booked []models.DateInterval, candidate models.DateInterval, exclude *models.DateInterval) bool {
	skipped := false
	for _, b := range booked {
		if exclude != nil && !skipped && b.Equal(*exclude) {
			skipped = true
			continue
		}
		if b.Overlaps(candidate) {
			return false
		}
	}
	return true
}

// Reserve appends interval to booked. The caller must have checked
// availability for the same interval.
func Reserve(booked []models.DateInterval, interval models.DateInterval) []models.DateInterval {
	out := make([]models.DateInterval, 0, len(booked)+1)
	out = append(out, booked...)
	return append(out, interval)
}

// Release removes every entry whose start and end both equal interval.
func Release(booked []models.DateInterval, interval models.DateInterval) []models.DateInterval {
	out := make([]models.DateInterval, 0, len(booked))
	for _, b := range booked {
		if b.Equal(interval) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Contains reports whether an entry exactly equal to interval is present.
func Contains(booked []models.DateInterval, interval models.DateInterval) bool {
	for _, b := range booked {
		if b.Equal(interval) {
			return true
		}
	}
	return false
}

// TotalDays is the number of started 24h periods in the interval, minimum 1.
func TotalDays(interval models.DateInterval) int {
	d := interval.EndDate.Sub(interval.StartDate)
	days := int(math.Ceil(float64(d) / float64(24*time.Hour)))
	if days < 1 {
		return 1
	}
	return days
}

// PriceBooking computes the itemized price of renting at pricePerDay over
// interval with the given add-ons. Each component is rounded to cents.
func PriceBooking(pricePerDay float64, interval models.DateInterval, opts models.QuoteOptions) models.PriceBreakdown {
	days := TotalDays(interval)
	n := float64(days)

	base := roundCents(pricePerDay * n)
	serviceFee := roundCents(base * ServiceFeeRate)

	var additional float64
	if opts.Insurance {
		additional += InsurancePerDay * n
	}
	if opts.ExtraDriver {
		additional += ExtraDriverPerDay * n
	}
	if opts.ChildSeat {
		additional += ChildSeatPerDay * n
	}
	additional = roundCents(additional)

	var locationFee float64
	if opts.DifferentDropoff {
		locationFee = DifferentDropoff
	}

	subtotal := base + serviceFee + additional + locationFee
	tax := roundCents(subtotal * TaxRate)

	return models.PriceBreakdown{
		TotalDays:      days,
		BasePrice:      base,
		ServiceFee:     serviceFee,
		AdditionalFees: additional,
		LocationFee:    locationFee,
		Taxes:          models.Tax{Rate: TaxRate, Amount: tax},
		TotalPrice:     roundCents(subtotal + tax),
	}
}

// VehicleRateCard derives the published daily/weekly/monthly rates.
func VehicleRateCard(pricePerDay float64) models.RateCard {
	var rc models.RateCard
	rc.Base.Daily = pricePerDay
	rc.Base.Weekly = roundCents(pricePerDay * weeklyMultiplier)
	rc.Base.Monthly = roundCents(pricePerDay * monthlyMultiplier)
	rc.ServiceFee = roundCents(pricePerDay * ServiceFeeRate)
	rc.Deposit = roundCents(pricePerDay * depositMultiplier)
	rc.Taxes = models.Tax{Rate: TaxRate, Amount: roundCents(pricePerDay * TaxRate)}
	return rc
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
