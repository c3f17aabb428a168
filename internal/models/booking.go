package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateInterval is a half-open range [StartDate, EndDate).
type DateInterval struct {
	StartDate time.Time `bson:"start_date" json:"startDate"`
	EndDate   time.Time `bson:"end_date" json:"endDate"`
}

// Valid reports whether the interval starts before it ends.
func (d DateInterval) Valid() bool {
	return d.StartDate.Before(d.EndDate)
}

// Overlaps reports whether two half-open intervals intersect. Intervals that
// only touch at an endpoint do not overlap.
func (d DateInterval) Overlaps(o DateInterval) bool {
	return d.StartDate.Before(o.EndDate) && d.EndDate.After(o.StartDate)
}

// Equal reports whether both endpoints are the same instant.
func (d DateInterval) Equal(o DateInterval) bool {
	return d.StartDate.Equal(o.StartDate) && d.EndDate.Equal(o.EndDate)
}

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// BookingStatuses lists every status in lifecycle order.
var BookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

// IsValidBookingStatus checks if a booking status is valid
func IsValidBookingStatus(s BookingStatus) bool {
	for _, v := range BookingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// IsActive reports whether a booking in this status holds its dates on the vehicle.
func (s BookingStatus) IsActive() bool {
	return s != BookingStatusCancelled
}

// CanTransitionTo reports whether next is an edge of the booking state machine.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, v := range bookingTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment state of a booking.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Booking is a reservation of a vehicle over a date range.
//
// TotalPrice holds the base price only (pricePerDay * totalDays); the service
// fee is stored separately in ServiceFee.
type Booking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Vehicle         primitive.ObjectID `bson:"vehicle" json:"vehicle"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	StartDate       time.Time          `bson:"start_date" json:"startDate"`
	EndDate         time.Time          `bson:"end_date" json:"endDate"`
	TotalDays       int                `bson:"total_days" json:"totalDays"`
	PickupLocation  primitive.ObjectID `bson:"pickup_location" json:"pickupLocation"`
	DropoffLocation primitive.ObjectID `bson:"dropoff_location" json:"dropoffLocation"`
	TotalPrice      float64            `bson:"total_price" json:"totalPrice"`
	ServiceFee      float64            `bson:"service_fee" json:"serviceFee"`
	Status          BookingStatus      `bson:"status" json:"status"`
	PaymentStatus   PaymentStatus      `bson:"payment_status" json:"paymentStatus"`
	SpecialRequests string             `bson:"special_requests,omitempty" json:"specialRequests,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Interval returns the booking's reserved date range.
func (b *Booking) Interval() DateInterval {
	return DateInterval{StartDate: b.StartDate, EndDate: b.EndDate}
}

// BookingView is a booking with its vehicle and locations populated.
type BookingView struct {
	ID              primitive.ObjectID `json:"id"`
	Vehicle         *VehicleSummary    `json:"vehicle"`
	User            primitive.ObjectID `json:"user"`
	StartDate       time.Time          `json:"startDate"`
	EndDate         time.Time          `json:"endDate"`
	TotalDays       int                `json:"totalDays"`
	PickupLocation  *LocationSummary   `json:"pickupLocation"`
	DropoffLocation *LocationSummary   `json:"dropoffLocation"`
	TotalPrice      float64            `json:"totalPrice"`
	ServiceFee      float64            `json:"serviceFee"`
	Status          BookingStatus      `json:"status"`
	PaymentStatus   PaymentStatus      `json:"paymentStatus"`
	SpecialRequests string             `json:"specialRequests,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// NewBookingView copies b into a view; the caller fills in the summaries.
func NewBookingView(b Booking) BookingView {
	return BookingView{
		ID:              b.ID,
		User:            b.User,
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		TotalDays:       b.TotalDays,
		TotalPrice:      b.TotalPrice,
		ServiceFee:      b.ServiceFee,
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
