package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Address is the postal address of a pickup/dropoff site.
type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Country string `bson:"country" json:"country"`
	ZipCode string `bson:"zip_code" json:"zipCode"`
}

// ContactInfo holds the site's phone and email.
type ContactInfo struct {
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
}

// OpeningHours is the open/close time of one weekday, e.g. "08:00"/"18:00".
type OpeningHours struct {
	Open  string `bson:"open,omitempty" json:"open,omitempty"`
	Close string `bson:"close,omitempty" json:"close,omitempty"`
}

// WeeklyHours maps each weekday to its opening hours.
type WeeklyHours struct {
	Monday    OpeningHours `bson:"monday" json:"monday"`
	Tuesday   OpeningHours `bson:"tuesday" json:"tuesday"`
	Wednesday OpeningHours `bson:"wednesday" json:"wednesday"`
	Thursday  OpeningHours `bson:"thursday" json:"thursday"`
	Friday    OpeningHours `bson:"friday" json:"friday"`
	Saturday  OpeningHours `bson:"saturday" json:"saturday"`
	Sunday    OpeningHours `bson:"sunday" json:"sunday"`
}

// Location represents a pickup/dropoff site. Vehicles have a home location
// and bookings reference a pickup and a dropoff location.
type Location struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Address     Address            `bson:"address" json:"address"`
	Coordinates Coordinates        `bson:"coordinates" json:"coordinates"`
	ContactInfo ContactInfo        `bson:"contact_info" json:"contactInfo"`
	Hours       WeeklyHours        `bson:"hours" json:"hours"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// LocationSummary is the short form embedded in booking and vehicle responses.
type LocationSummary struct {
	ID      primitive.ObjectID `json:"id"`
	Name    string             `json:"name"`
	Address *Address           `json:"address,omitempty"`
	City    string             `json:"city,omitempty"`
}
