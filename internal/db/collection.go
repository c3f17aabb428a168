package db

import (
	"context"

	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleFilter narrows a vehicle listing. Zero values mean "no filter".
type VehicleFilter struct {
	Type      models.VehicleType
	Location  *primitive.ObjectID
	MinPrice  *float64
	MaxPrice  *float64
	Available *bool
	MinSeats  int
	Search    string
	SortBy    string
	Ascending bool
	Page      int64
	Limit     int64
}

// LocationFilter narrows a location listing.
type LocationFilter struct {
	Country string
	City    string
	Active  *bool
	Search  string
	Page    int64
	Limit   int64
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehiclesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Vehicle, error)
	FindVehicles(ctx context.Context, filter VehicleFilter) ([]models.Vehicle, int64, error)
	FindFreeVehicles(ctx context.Context, interval models.DateInterval, location *primitive.ObjectID) ([]models.Vehicle, error)
	VehicleTypes(ctx context.Context) ([]string, error)
	CountVehiclesAtLocation(ctx context.Context, location primitive.ObjectID) (int64, error)
	UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	UpdateBookedDates(ctx context.Context, id primitive.ObjectID, dates []models.DateInterval, version int64) error
	AddReview(ctx context.Context, id primitive.ObjectID, review models.Review, rating float64, count int) error
	DeleteVehicle(ctx context.Context, id primitive.ObjectID) error
}

// LocationCollection defines the interface for location data operations.
type LocationCollection interface {
	InsertLocation(ctx context.Context, location *models.Location) error
	FindLocationByID(ctx context.Context, id string) (*models.Location, error)
	FindLocationsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Location, error)
	FindLocations(ctx context.Context, filter LocationFilter) ([]models.Location, int64, error)
	UpdateLocation(ctx context.Context, location *models.Location) error
	DeleteLocation(ctx context.Context, id primitive.ObjectID) error
}

// BookingCollection defines the interface for booking data operations.
type BookingCollection interface {
	InsertBooking(ctx context.Context, booking *models.Booking) error
	FindBookingByID(ctx context.Context, id string) (*models.Booking, error)
	FindBookingsByUser(ctx context.Context, user primitive.ObjectID) ([]models.Booking, error)
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id primitive.ObjectID) error
}
