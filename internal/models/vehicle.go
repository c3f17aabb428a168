package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleType is the kind of rentable asset.
type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeBicycle    VehicleType = "bicycle"
	VehicleTypeBoat       VehicleType = "boat"
)

// IsValidVehicleType checks if a vehicle type is valid
func IsValidVehicleType(t VehicleType) bool {
	switch t {
	case VehicleTypeCar, VehicleTypeMotorcycle, VehicleTypeBicycle, VehicleTypeBoat:
		return true
	default:
		return false
	}
}

// IsValidFuelType accepts the known fuel types and the empty string.
func IsValidFuelType(f string) bool {
	switch f {
	case "", "Petrol", "Diesel", "Electric", "Hybrid":
		return true
	default:
		return false
	}
}

// Review is a user's rating of a vehicle.
type Review struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Rating    int                `bson:"rating" json:"rating"` // 1-5
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Vehicle represents a rentable vehicle.
//
// BookedDates is a projection of the vehicle's active bookings, kept in
// insertion order. Version is bumped on every write of BookedDates.
type Vehicle struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Type        VehicleType        `bson:"type" json:"type"`
	Images      []string           `bson:"images" json:"images"`
	PricePerDay float64            `bson:"price_per_day" json:"pricePerDay"`
	Location    primitive.ObjectID `bson:"location" json:"location"`
	Rating      float64            `bson:"rating" json:"rating"`
	Reviews     []Review           `bson:"reviews" json:"reviews"`
	ReviewCount int                `bson:"review_count" json:"reviewCount"`
	Seats       int                `bson:"seats" json:"seats"`
	FuelType    string             `bson:"fuel_type,omitempty" json:"fuelType,omitempty"`
	Available   bool               `bson:"available" json:"available"`
	Description string             `bson:"description" json:"description"`
	Features    []string           `bson:"features" json:"features"`
	BookedDates []DateInterval     `bson:"booked_dates" json:"bookedDates"`
	Version     int64              `bson:"version" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// VehicleSummary is the short form embedded in booking responses.
type VehicleSummary struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Type        VehicleType        `json:"type"`
	Images      []string           `json:"images"`
	PricePerDay float64            `json:"pricePerDay,omitempty"`
}

// VehicleDetail is a vehicle with its home location populated.
type VehicleDetail struct {
	Vehicle
	Location *Location `json:"location"`
}
