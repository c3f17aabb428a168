package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/events"
	"github.com/ukydev/vehicle-rental/internal/lock"
	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errStore = errors.New("store unavailable")

func copyVehicle(v models.Vehicle) *models.Vehicle {
	v.BookedDates = append([]models.DateInterval(nil), v.BookedDates...)
	v.Reviews = append([]models.Review(nil), v.Reviews...)
	return &v
}

// memVehicles is an in-memory VehicleCollection with the same
// compare-and-swap semantics as the Mongo one.
type memVehicles struct {
	mu       sync.Mutex
	vehicles map[primitive.ObjectID]*models.Vehicle

	failCommit int // fail the next n UpdateBookedDates calls
	commits    int
}

func newMemVehicles() *memVehicles {
	return &memVehicles{vehicles: make(map[primitive.ObjectID]*models.Vehicle)}
}

func (m *memVehicles) InsertVehicle(_ context.Context, vehicle *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	if vehicle.BookedDates == nil {
		vehicle.BookedDates = []models.DateInterval{}
	}
	m.vehicles[vehicle.ID] = copyVehicle(*vehicle)
	return nil
}

func (m *memVehicles) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	oid, err := db.ParseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[oid]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyVehicle(*v), nil
}

func (m *memVehicles) FindVehiclesByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Vehicle{}
	for _, id := range ids {
		if v, ok := m.vehicles[id]; ok {
			out = append(out, *copyVehicle(*v))
		}
	}
	return out, nil
}

func (m *memVehicles) FindVehicles(_ context.Context, filter db.VehicleFilter) ([]models.Vehicle, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.Vehicle{}
	for _, v := range m.vehicles {
		if filter.Type != "" && v.Type != filter.Type {
			continue
		}
		if filter.Location != nil && v.Location != *filter.Location {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(v.Name), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, *copyVehicle(*v))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memVehicles) FindFreeVehicles(_ context.Context, interval models.DateInterval, location *primitive.ObjectID) ([]models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Vehicle{}
	for _, v := range m.vehicles {
		if !v.Available || (location != nil && v.Location != *location) {
			continue
		}
		free := true
		for _, d := range v.BookedDates {
			if d.Overlaps(interval) {
				free = false
				break
			}
		}
		if free {
			out = append(out, *copyVehicle(*v))
		}
	}
	return out, nil
}

func (m *memVehicles) VehicleTypes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	types := []string{}
	for _, v := range m.vehicles {
		if !seen[string(v.Type)] {
			seen[string(v.Type)] = true
			types = append(types, string(v.Type))
		}
	}
	sort.Strings(types)
	return types, nil
}

func (m *memVehicles) CountVehiclesAtLocation(_ context.Context, location primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.vehicles {
		if v.Location == location {
			n++
		}
	}
	return n, nil
}

func (m *memVehicles) UpdateVehicle(_ context.Context, vehicle *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.vehicles[vehicle.ID]
	if !ok {
		return db.ErrNotFound
	}
	updated := copyVehicle(*vehicle)
	updated.BookedDates = stored.BookedDates
	updated.Reviews = stored.Reviews
	updated.Rating = stored.Rating
	updated.ReviewCount = stored.ReviewCount
	updated.Version = stored.Version
	m.vehicles[vehicle.ID] = updated
	return nil
}

func (m *memVehicles) UpdateBookedDates(_ context.Context, id primitive.ObjectID, dates []models.DateInterval, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.failCommit > 0 {
		m.failCommit--
		return errStore
	}
	v, ok := m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	if v.Version != version {
		return db.ErrVersionConflict
	}
	v.BookedDates = append([]models.DateInterval{}, dates...)
	v.Version++
	return nil
}

func (m *memVehicles) AddReview(_ context.Context, id primitive.ObjectID, review models.Review, rating float64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	for _, r := range v.Reviews {
		if r.User == review.User {
			return db.ErrDuplicate
		}
	}
	v.Reviews = append(v.Reviews, review)
	v.Rating = rating
	v.ReviewCount = count
	return nil
}

func (m *memVehicles) DeleteVehicle(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.vehicles, id)
	return nil
}

func (m *memVehicles) dates(id primitive.ObjectID) []models.DateInterval {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DateInterval{}, m.vehicles[id].BookedDates...)
}

type memLocations struct {
	mu        sync.Mutex
	locations map[primitive.ObjectID]*models.Location
	// beforeFind runs at the start of every FindLocationByID.
	beforeFind func()
}

func newMemLocations() *memLocations {
	return &memLocations{locations: make(map[primitive.ObjectID]*models.Location)}
}

func (m *memLocations) InsertLocation(_ context.Context, location *models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if location.ID.IsZero() {
		location.ID = primitive.NewObjectID()
	}
	l := *location
	m.locations[l.ID] = &l
	return nil
}

func (m *memLocations) FindLocationByID(_ context.Context, id string) (*models.Location, error) {
	if m.beforeFind != nil {
		m.beforeFind()
	}
	oid, err := db.ParseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[oid]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *l
	return &out, nil
}

func (m *memLocations) FindLocationsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Location{}
	for _, id := range ids {
		if l, ok := m.locations[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memLocations) FindLocations(_ context.Context, filter db.LocationFilter) ([]models.Location, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Location{}
	for _, l := range m.locations {
		if filter.City != "" && !strings.EqualFold(l.Address.City, filter.City) {
			continue
		}
		if filter.Active != nil && l.Active != *filter.Active {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.City < out[j].Address.City })
	return out, int64(len(out)), nil
}

func (m *memLocations) UpdateLocation(_ context.Context, location *models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[location.ID]; !ok {
		return db.ErrNotFound
	}
	l := *location
	m.locations[l.ID] = &l
	return nil
}

func (m *memLocations) DeleteLocation(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.locations, id)
	return nil
}

type memBookings struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]*models.Booking

	failUpdate bool
	failInsert bool
	deleted    []primitive.ObjectID
}

func newMemBookings() *memBookings {
	return &memBookings{bookings: make(map[primitive.ObjectID]*models.Booking)}
}

func (m *memBookings) InsertBooking(_ context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert {
		return errStore
	}
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	b := *booking
	m.bookings[b.ID] = &b
	return nil
}

func (m *memBookings) FindBookingByID(_ context.Context, id string) (*models.Booking, error) {
	oid, err := db.ParseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[oid]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (m *memBookings) FindBookingsByUser(_ context.Context, user primitive.ObjectID) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, b := range m.bookings {
		if b.User == user {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memBookings) UpdateBooking(_ context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return errStore
	}
	if _, ok := m.bookings[booking.ID]; !ok {
		return db.ErrNotFound
	}
	b := *booking
	m.bookings[b.ID] = &b
	return nil
}

func (m *memBookings) DeleteBooking(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	delete(m.bookings, id)
	return nil
}

func (m *memBookings) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fixture is a seeded store with one vehicle at 50/day and two locations.
type fixture struct {
	vehicles  *memVehicles
	locations *memLocations
	bookings  *memBookings
	publisher *recordingPublisher
	store     Store
	locker    lock.Locker

	vehicle *models.Vehicle
	pickup  *models.Location
	dropoff *models.Location

	owner *models.Claims
	other *models.Claims
	admin *models.Claims
}

var fixtureNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		vehicles:  newMemVehicles(),
		locations: newMemLocations(),
		bookings:  newMemBookings(),
		publisher: &recordingPublisher{},
		locker:    lock.NewKeyedMutex(time.Second),
		owner:     &models.Claims{UserID: primitive.NewObjectID().Hex(), Username: "alice", Role: models.RoleUser},
		other:     &models.Claims{UserID: primitive.NewObjectID().Hex(), Username: "bob", Role: models.RoleUser},
		admin:     &models.Claims{UserID: primitive.NewObjectID().Hex(), Username: "root", Role: models.RoleAdmin},
	}
	f.store = Store{Vehicles: f.vehicles, Locations: f.locations, Bookings: f.bookings}

	ctx := context.Background()
	f.pickup = &models.Location{Name: "Downtown", Active: true, Address: models.Address{City: "Springfield", Country: "US"}}
	f.dropoff = &models.Location{Name: "Airport", Active: true, Address: models.Address{City: "Shelbyville", Country: "US"}}
	require.NoError(t, f.locations.InsertLocation(ctx, f.pickup))
	require.NoError(t, f.locations.InsertLocation(ctx, f.dropoff))

	f.vehicle = &models.Vehicle{
		Name: "Civic", Type: models.VehicleTypeCar, PricePerDay: 50, Seats: 5,
		Location: f.pickup.ID, Available: true, Description: "compact",
	}
	require.NoError(t, f.vehicles.InsertVehicle(ctx, f.vehicle))
	return f
}

func (f *fixture) bookingService() *BookingService {
	s := NewBookingService(f.store, f.locker, f.publisher, nil)
	s.now = func() time.Time { return fixtureNow }
	return s
}

func (f *fixture) createInput(start, end string) CreateBookingInput {
	return CreateBookingInput{
		VehicleID:         f.vehicle.ID.Hex(),
		StartDate:         start,
		EndDate:           end,
		PickupLocationID:  f.pickup.ID.Hex(),
		DropoffLocationID: f.dropoff.ID.Hex(),
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func span(start, end string) models.DateInterval {
	return models.DateInterval{StartDate: day(start), EndDate: day(end)}
}
