package models

import "time"

// QuoteOptions are the optional add-ons priced by a quote.
type QuoteOptions struct {
	Insurance        bool `json:"insurance"`
	ExtraDriver      bool `json:"extraDriver"`
	ChildSeat        bool `json:"childSeat"`
	DifferentDropoff bool `json:"differentDropoff"`
}

// Tax is the applied tax rate and resulting amount.
type Tax struct {
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// PriceBreakdown itemizes the cost of a rental.
type PriceBreakdown struct {
	TotalDays      int     `json:"-"`
	BasePrice      float64 `json:"basePrice"`
	ServiceFee     float64 `json:"serviceFee"`
	AdditionalFees float64 `json:"additionalFees"`
	LocationFee    float64 `json:"locationFee"`
	Taxes          Tax     `json:"taxes"`
	TotalPrice     float64 `json:"totalPrice"`
}

// QuoteDuration is the date range of a quote.
type QuoteDuration struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	TotalDays int       `json:"totalDays"`
}

// Quote is the response of the booking cost calculator.
type Quote struct {
	VehicleID   string         `json:"vehicleId"`
	VehicleName string         `json:"vehicleName"`
	Duration    QuoteDuration  `json:"duration"`
	Pricing     PriceBreakdown `json:"pricing"`
	Options     QuoteOptions   `json:"options"`
}

// RateCard is the published per-vehicle pricing.
type RateCard struct {
	Base struct {
		Daily   float64 `json:"daily"`
		Weekly  float64 `json:"weekly"`
		Monthly float64 `json:"monthly"`
	} `json:"base"`
	ServiceFee float64 `json:"serviceFee"`
	Deposit    float64 `json:"deposit"`
	Taxes      Tax     `json:"taxes"`
}
