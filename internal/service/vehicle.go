package service

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/availability"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/lock"
	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleInput carries vehicle fields for create and partial update. Nil
// fields are not set.
type VehicleInput struct {
	Name        *string             `json:"name"`
	Type        *models.VehicleType `json:"type"`
	Images      []string            `json:"images"`
	PricePerDay *float64            `json:"pricePerDay"`
	Location    *string             `json:"location"`
	Seats       *int                `json:"seats"`
	FuelType    *string             `json:"fuelType"`
	Available   *bool               `json:"available"`
	Description *string             `json:"description"`
	Features    []string            `json:"features"`
}

// ReviewInput is the body of a review.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// VehicleList is one page of the catalog.
type VehicleList struct {
	Vehicles   []models.VehicleDetail `json:"vehicles"`
	Pagination Pagination             `json:"pagination"`
}

// ReviewList is a vehicle's reviews and their aggregate.
type ReviewList struct {
	Reviews     []models.Review `json:"reviews"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"reviewCount"`
}

// VehicleService manages the vehicle catalog.
type VehicleService struct {
	store        Store
	reservations *reservations
	log          log.FieldLogger
	now          func() time.Time
}

// NewVehicleService wires a VehicleService. locker must be the one the
// BookingService uses so deletes and reviews serialize with reservations.
func NewVehicleService(store Store, locker lock.Locker, logger log.FieldLogger) *VehicleService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &VehicleService{
		store:        store,
		reservations: &reservations{vehicles: store.Vehicles, locker: locker},
		log:          logger,
		now:          time.Now,
	}
}

// List returns one page of vehicles with their home locations.
func (s *VehicleService) List(ctx context.Context, filter db.VehicleFilter) (*VehicleList, error) {
	if filter.Type != "" && !models.IsValidVehicleType(filter.Type) {
		return nil, invalidInput("Invalid vehicle type %q", filter.Type)
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	vehicles, total, err := s.store.Vehicles.FindVehicles(ctx, filter)
	if err != nil {
		return nil, err
	}
	details, err := s.withLocations(ctx, vehicles)
	if err != nil {
		return nil, err
	}
	return &VehicleList{
		Vehicles:   details,
		Pagination: newPagination(filter.Page, filter.Limit, total),
	}, nil
}

// Get returns a vehicle with its home location.
func (s *VehicleService) Get(ctx context.Context, id string) (*models.VehicleDetail, error) {
	vehicle, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}
	details, err := s.withLocations(ctx, []models.Vehicle{*vehicle})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Create adds a vehicle to the catalog.
func (s *VehicleService) Create(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" || in.Type == nil || in.PricePerDay == nil ||
		in.Location == nil || in.Seats == nil || in.Description == nil {
		return nil, invalidInput("Name, type, price per day, location, seats, and description are required")
	}
	unlock, err := s.lockHome(ctx, in)
	if err != nil {
		return nil, err
	}
	defer unlock()

	vehicle := &models.Vehicle{Available: true}
	if err := s.apply(ctx, vehicle, in); err != nil {
		return nil, err
	}
	if err := s.store.Vehicles.InsertVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{"vehicle_id": vehicle.ID.Hex(), "name": vehicle.Name}).Info("vehicle created")
	return vehicle, nil
}

// Update changes the supplied catalog fields of a vehicle.
func (s *VehicleService) Update(ctx context.Context, id string, in VehicleInput) (*models.Vehicle, error) {
	unlock, err := s.lockHome(ctx, in)
	if err != nil {
		return nil, err
	}
	defer unlock()

	vehicle, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}
	if err := s.apply(ctx, vehicle, in); err != nil {
		return nil, err
	}
	if err := s.store.Vehicles.UpdateVehicle(ctx, vehicle); err != nil {
		return nil, fromStore(err, "Vehicle")
	}
	return vehicle, nil
}

// lockHome takes the lock of in.Location, the vehicle's new home. It is
// held until the vehicle is written so the location cannot be deleted in
// between.
func (s *VehicleService) lockHome(ctx context.Context, in VehicleInput) (func(), error) {
	if in.Location == nil {
		return func() {}, nil
	}
	oid, err := db.ParseID(*in.Location)
	if err != nil {
		// apply reports it
		return func() {}, nil
	}
	unlock, err := s.reservations.locker.Lock(ctx, locationLockKey(oid))
	if err != nil {
		return nil, fromStore(err, "Location")
	}
	return unlock, nil
}

// apply validates and copies the non-nil fields of in onto vehicle.
func (s *VehicleService) apply(ctx context.Context, vehicle *models.Vehicle, in VehicleInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalidInput("Name cannot be empty")
		}
		vehicle.Name = name
	}
	if in.Type != nil {
		if !models.IsValidVehicleType(*in.Type) {
			return invalidInput("Type must be one of: car, motorcycle, bicycle, boat")
		}
		vehicle.Type = *in.Type
	}
	if in.PricePerDay != nil {
		if *in.PricePerDay < 0 {
			return invalidInput("Price per day cannot be negative")
		}
		vehicle.PricePerDay = *in.PricePerDay
	}
	if in.Seats != nil {
		if *in.Seats < 1 {
			return invalidInput("Seats must be at least 1")
		}
		vehicle.Seats = *in.Seats
	}
	if in.FuelType != nil {
		if !models.IsValidFuelType(*in.FuelType) {
			return invalidInput("Fuel type must be one of: Petrol, Diesel, Electric, Hybrid")
		}
		vehicle.FuelType = *in.FuelType
	}
	if in.Location != nil {
		location, err := s.store.Locations.FindLocationByID(ctx, *in.Location)
		if errors.Is(err, db.ErrNotFound) {
			return invalidInput("Location does not exist")
		}
		if err != nil {
			return fromStore(err, "Location")
		}
		vehicle.Location = location.ID
	}
	if in.Images != nil {
		vehicle.Images = in.Images
	}
	if in.Features != nil {
		vehicle.Features = in.Features
	}
	if in.Available != nil {
		vehicle.Available = *in.Available
	}
	if in.Description != nil {
		vehicle.Description = *in.Description
	}
	return nil
}

// Delete removes a vehicle. Vehicles whose dates are held by active
// bookings cannot be removed.
func (s *VehicleService) Delete(ctx context.Context, id string) error {
	oid, err := db.ParseID(id)
	if err != nil {
		return fromStore(err, "Vehicle")
	}
	hold, err := s.reservations.acquire(ctx, oid)
	if err != nil {
		return err
	}
	defer hold.Release()

	if n := len(hold.Vehicle.BookedDates); n > 0 {
		return invalidState("Cannot delete vehicle with %d active booking(s)", n)
	}
	if err := s.store.Vehicles.DeleteVehicle(ctx, oid); err != nil {
		return fromStore(err, "Vehicle")
	}
	s.log.WithField("vehicle_id", id).Info("vehicle deleted")
	return nil
}

// Types lists the distinct vehicle types in the catalog.
func (s *VehicleService) Types(ctx context.Context) ([]string, error) {
	return s.store.Vehicles.VehicleTypes(ctx)
}

// Available lists vehicles free over [startDate, endDate), optionally at one
// location.
func (s *VehicleService) Available(ctx context.Context, startDate, endDate, locationID string) ([]models.VehicleDetail, error) {
	interval, err := parseInterval(startDate, endDate)
	if err != nil {
		return nil, err
	}
	var location *primitive.ObjectID
	if locationID != "" {
		oid, err := db.ParseID(locationID)
		if err != nil {
			return nil, fromStore(err, "Location")
		}
		location = &oid
	}
	vehicles, err := s.store.Vehicles.FindFreeVehicles(ctx, interval, location)
	if err != nil {
		return nil, err
	}
	return s.withLocations(ctx, vehicles)
}

// Pricing returns the vehicle's rate card.
func (s *VehicleService) Pricing(ctx context.Context, id string) (*models.RateCard, error) {
	vehicle, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}
	card := availability.VehicleRateCard(vehicle.PricePerDay)
	return &card, nil
}

// AddReview records the actor's review and updates the vehicle's rating.
// Each user may review a vehicle once.
func (s *VehicleService) AddReview(ctx context.Context, actor *models.Claims, id string, in ReviewInput) (*models.Review, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(in.Comment)
	if in.Rating == 0 || comment == "" {
		return nil, invalidInput("Rating and comment are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, invalidInput("Rating must be between 1 and 5")
	}
	oid, err := db.ParseID(id)
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}

	hold, err := s.reservations.acquire(ctx, oid)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	vehicle := hold.Vehicle
	sum := 0
	for _, r := range vehicle.Reviews {
		if r.User == userID {
			return nil, conflict("Vehicle already reviewed")
		}
		sum += r.Rating
	}
	review := models.Review{User: userID, Rating: in.Rating, Comment: comment, CreatedAt: s.now()}
	count := len(vehicle.Reviews) + 1
	rating := float64(sum+in.Rating) / float64(count)

	if err := s.store.Vehicles.AddReview(ctx, oid, review, rating, count); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflict("Vehicle already reviewed")
		}
		return nil, fromStore(err, "Vehicle")
	}
	return &review, nil
}

// Reviews lists a vehicle's reviews.
func (s *VehicleService) Reviews(ctx context.Context, id string) (*ReviewList, error) {
	vehicle, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}
	reviews := vehicle.Reviews
	if reviews == nil {
		reviews = []models.Review{}
	}
	return &ReviewList{Reviews: reviews, Rating: vehicle.Rating, ReviewCount: vehicle.ReviewCount}, nil
}

// withLocations attaches each vehicle's home location.
func (s *VehicleService) withLocations(ctx context.Context, vehicles []models.Vehicle) ([]models.VehicleDetail, error) {
	ids := make([]primitive.ObjectID, 0, len(vehicles))
	for _, v := range vehicles {
		ids = append(ids, v.Location)
	}
	locations, err := s.store.Locations.FindLocationsByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Location, len(locations))
	for i := range locations {
		byID[locations[i].ID] = &locations[i]
	}

	details := make([]models.VehicleDetail, 0, len(vehicles))
	for _, v := range vehicles {
		details = append(details, models.VehicleDetail{Vehicle: v, Location: byID[v.Location]})
	}
	return details, nil
}
