package service

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/lock"
	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationInput carries location fields for create and partial update.
type LocationInput struct {
	Name        *string             `json:"name"`
	Address     *models.Address     `json:"address"`
	Coordinates *models.Coordinates `json:"coordinates"`
	ContactInfo *models.ContactInfo `json:"contactInfo"`
	Hours       *models.WeeklyHours `json:"hours"`
	Active      *bool               `json:"active"`
}

// LocationList is one page of the registry.
type LocationList struct {
	Locations  []models.Location `json:"locations"`
	Pagination Pagination        `json:"pagination"`
}

// DateRange echoes the searched interval.
type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// LocationAvailability lists the vehicles free at a location over a range.
type LocationAvailability struct {
	Location          models.LocationSummary `json:"location"`
	DateRange         DateRange              `json:"dateRange"`
	AvailableVehicles []models.Vehicle       `json:"availableVehicles"`
	VehicleCount      int                    `json:"vehicleCount"`
}

// LocationService manages pickup and dropoff sites.
type LocationService struct {
	store  Store
	locker lock.Locker
	log    log.FieldLogger
}

// NewLocationService wires a LocationService. locker must be the one the
// VehicleService uses so deletes serialize with vehicles being homed at the
// location.
func NewLocationService(store Store, locker lock.Locker, logger log.FieldLogger) *LocationService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LocationService{store: store, locker: locker, log: logger}
}

func locationLockKey(id primitive.ObjectID) string {
	return "location:" + id.Hex()
}

// List returns one page of locations sorted by country then city.
func (s *LocationService) List(ctx context.Context, filter db.LocationFilter) (*LocationList, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	locations, total, err := s.store.Locations.FindLocations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &LocationList{
		Locations:  locations,
		Pagination: newPagination(filter.Page, filter.Limit, total),
	}, nil
}

// Get returns one location.
func (s *LocationService) Get(ctx context.Context, id string) (*models.Location, error) {
	location, err := s.store.Locations.FindLocationByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Location")
	}
	return location, nil
}

// Create registers a location. New locations are active unless stated
// otherwise.
func (s *LocationService) Create(ctx context.Context, in LocationInput) (*models.Location, error) {
	if in.Name == nil || in.Address == nil || in.Coordinates == nil {
		return nil, invalidInput("Name, address, and coordinates are required")
	}
	location := &models.Location{Active: true}
	if err := applyLocation(location, in); err != nil {
		return nil, err
	}
	if err := s.store.Locations.InsertLocation(ctx, location); err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{"location_id": location.ID.Hex(), "name": location.Name}).Info("location created")
	return location, nil
}

// Update merges the supplied fields into a location.
func (s *LocationService) Update(ctx context.Context, id string, in LocationInput) (*models.Location, error) {
	location, err := s.store.Locations.FindLocationByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Location")
	}
	if err := applyLocation(location, in); err != nil {
		return nil, err
	}
	if err := s.store.Locations.UpdateLocation(ctx, location); err != nil {
		return nil, fromStore(err, "Location")
	}
	return location, nil
}

func applyLocation(location *models.Location, in LocationInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalidInput("Name cannot be empty")
		}
		location.Name = name
	}
	if in.Address != nil {
		a := *in.Address
		if blank(a.Street, a.City, a.State, a.Country, a.ZipCode) {
			return invalidInput("Address requires street, city, state, country, and zip code")
		}
		location.Address = a
	}
	if in.Coordinates != nil {
		c := *in.Coordinates
		if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
			return invalidInput("Coordinates are out of range")
		}
		location.Coordinates = c
	}
	if in.ContactInfo != nil {
		location.ContactInfo = *in.ContactInfo
	}
	if in.Hours != nil {
		location.Hours = *in.Hours
	}
	if in.Active != nil {
		location.Active = *in.Active
	}
	return nil
}

// Delete removes a location no vehicle calls home.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	oid, err := db.ParseID(id)
	if err != nil {
		return fromStore(err, "Location")
	}
	unlock, err := s.locker.Lock(ctx, locationLockKey(oid))
	if err != nil {
		return fromStore(err, "Location")
	}
	defer unlock()

	location, err := s.store.Locations.FindLocationByID(ctx, id)
	if err != nil {
		return fromStore(err, "Location")
	}
	n, err := s.store.Vehicles.CountVehiclesAtLocation(ctx, location.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return invalidState("Cannot delete location as it is used by %d vehicle(s)", n)
	}
	if err := s.store.Locations.DeleteLocation(ctx, location.ID); err != nil {
		return fromStore(err, "Location")
	}
	s.log.WithField("location_id", id).Info("location deleted")
	return nil
}

// Availability lists vehicles at the location free over [startDate, endDate).
func (s *LocationService) Availability(ctx context.Context, id, startDate, endDate string) (*LocationAvailability, error) {
	if blank(startDate, endDate) {
		return nil, invalidInput("Start date and end date are required")
	}
	location, err := s.store.Locations.FindLocationByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Location")
	}
	interval, err := parseInterval(startDate, endDate)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.store.Vehicles.FindFreeVehicles(ctx, interval, &location.ID)
	if err != nil {
		return nil, err
	}
	address := location.Address
	return &LocationAvailability{
		Location:          models.LocationSummary{ID: location.ID, Name: location.Name, Address: &address},
		DateRange:         DateRange{StartDate: interval.StartDate, EndDate: interval.EndDate},
		AvailableVehicles: vehicles,
		VehicleCount:      len(vehicles),
	}, nil
}
