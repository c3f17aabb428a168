package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/availability"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/events"
	"github.com/ukydev/vehicle-rental/internal/lock"
	"github.com/ukydev/vehicle-rental/internal/models"
	"github.com/ukydev/vehicle-rental/internal/receipt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateBookingInput is the body of a booking request.
type CreateBookingInput struct {
	VehicleID         string `json:"vehicleId"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	PickupLocationID  string `json:"pickupLocationId"`
	DropoffLocationID string `json:"dropoffLocationId"`
	SpecialRequests   string `json:"specialRequests"`
}

// UpdateBookingInput holds the fields a booking update may change. Nil
// fields are left as they are.
type UpdateBookingInput struct {
	StartDate         *string `json:"startDate"`
	EndDate           *string `json:"endDate"`
	PickupLocationID  *string `json:"pickupLocationId"`
	DropoffLocationID *string `json:"dropoffLocationId"`
	SpecialRequests   *string `json:"specialRequests"`
}

// QuoteInput is the body of a price calculation request.
type QuoteInput struct {
	VehicleID string              `json:"vehicleId"`
	StartDate string              `json:"startDate"`
	EndDate   string              `json:"endDate"`
	Options   models.QuoteOptions `json:"options"`
}

// BookingService manages the booking lifecycle.
type BookingService struct {
	store        Store
	reservations *reservations
	publisher    events.Publisher
	log          log.FieldLogger
	now          func() time.Time
}

// NewBookingService wires a BookingService. A nil publisher drops events.
func NewBookingService(store Store, locker lock.Locker, publisher events.Publisher, logger log.FieldLogger) *BookingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BookingService{
		store:        store,
		reservations: &reservations{vehicles: store.Vehicles, locker: locker},
		publisher:    publisher,
		log:          logger,
		now:          time.Now,
	}
}

// Create books a vehicle for the actor.
func (s *BookingService) Create(ctx context.Context, actor *models.Claims, in CreateBookingInput) (*models.Booking, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if blank(in.VehicleID, in.StartDate, in.EndDate, in.PickupLocationID, in.DropoffLocationID) {
		return nil, invalidInput("Vehicle ID, start date, end date, pickup location, and dropoff location are required")
	}
	interval, err := parseInterval(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	if interval.StartDate.Before(s.now()) {
		return nil, invalidInput("Start date cannot be in the past")
	}
	vehicleID, err := db.ParseID(in.VehicleID)
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}
	pickupID, err := db.ParseID(in.PickupLocationID)
	if err != nil {
		return nil, fromStore(err, "Pickup location")
	}
	dropoffID, err := db.ParseID(in.DropoffLocationID)
	if err != nil {
		return nil, fromStore(err, "Dropoff location")
	}

	hold, err := s.reservations.acquire(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	if !hold.Available(interval, nil) {
		return nil, conflict("Vehicle is not available for the selected dates")
	}
	if err := s.requireLocations(ctx, pickupID, dropoffID); err != nil {
		return nil, err
	}

	price := availability.PriceBooking(hold.Vehicle.PricePerDay, interval, models.QuoteOptions{})
	now := s.now()
	booking := &models.Booking{
		ID:              primitive.NewObjectID(),
		Vehicle:         vehicleID,
		User:            userID,
		StartDate:       interval.StartDate,
		EndDate:         interval.EndDate,
		TotalDays:       price.TotalDays,
		PickupLocation:  pickupID,
		DropoffLocation: dropoffID,
		TotalPrice:      price.BasePrice,
		ServiceFee:      price.ServiceFee,
		Status:          models.BookingStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		SpecialRequests: strings.TrimSpace(in.SpecialRequests),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Bookings.InsertBooking(ctx, booking); err != nil {
		return nil, err
	}

	if err := hold.Reserve(ctx, interval); err != nil {
		if delErr := s.store.Bookings.DeleteBooking(context.WithoutCancel(ctx), booking.ID); delErr != nil {
			s.log.WithFields(log.Fields{
				"booking_id": booking.ID.Hex(),
				"vehicle_id": vehicleID.Hex(),
			}).WithError(delErr).Error("failed to roll back booking after reservation failure")
		}
		return nil, err
	}

	s.log.WithFields(log.Fields{
		"booking_id": booking.ID.Hex(),
		"vehicle_id": vehicleID.Hex(),
		"user_id":    userID.Hex(),
		"start":      interval.StartDate.Format(time.RFC3339),
		"end":        interval.EndDate.Format(time.RFC3339),
	}).Info("booking created")

	s.publish(ctx, events.BookingCreated, events.NewBookingData(booking, ""))
	s.publishAvailability(ctx, hold.Vehicle)
	return booking, nil
}

// requireLocations loads pickup and dropoff concurrently.
func (s *BookingService) requireLocations(ctx context.Context, pickupID, dropoffID primitive.ObjectID) error {
	var wg sync.WaitGroup
	var pickupErr, dropoffErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, pickupErr = s.store.Locations.FindLocationByID(ctx, pickupID.Hex())
	}()
	go func() {
		defer wg.Done()
		_, dropoffErr = s.store.Locations.FindLocationByID(ctx, dropoffID.Hex())
	}()
	wg.Wait()

	if pickupErr != nil {
		return fromStore(pickupErr, "Pickup location")
	}
	return fromStore(dropoffErr, "Dropoff location")
}

// load finds a booking and checks the actor may see it.
func (s *BookingService) load(ctx context.Context, actor *models.Claims, id string) (*models.Booking, error) {
	booking, err := s.store.Bookings.FindBookingByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Booking")
	}
	if !actor.IsPrivileged() && !actor.Owns(booking.User.Hex()) {
		return nil, forbidden("Not authorized to access this booking")
	}
	return booking, nil
}

// Get returns a booking with its vehicle and locations populated.
func (s *BookingService) Get(ctx context.Context, actor *models.Claims, id string) (*models.BookingView, error) {
	booking, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	views, err := s.populate(ctx, []models.Booking{*booking}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Receipt renders the booking's receipt as a PDF.
func (s *BookingService) Receipt(ctx context.Context, actor *models.Claims, id string) ([]byte, string, error) {
	view, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	return receipt.Render(*view, s.now())
}

// lockBooking checks access to a booking, locks its vehicle and reloads the
// booking under the lock so status checks see the latest write.
func (s *BookingService) lockBooking(ctx context.Context, actor *models.Claims, id string) (*models.Booking, *vehicleHold, error) {
	booking, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	hold, err := s.reservations.lock(ctx, booking.Vehicle)
	if err != nil {
		return nil, nil, err
	}
	booking, err = s.store.Bookings.FindBookingByID(ctx, id)
	if err != nil {
		hold.Release()
		return nil, nil, fromStore(err, "Booking")
	}
	return booking, hold, nil
}

// Update changes the dates, locations or special requests of a booking.
func (s *BookingService) Update(ctx context.Context, actor *models.Claims, id string, in UpdateBookingInput) (*models.Booking, error) {
	booking, hold, err := s.lockBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	if !actor.IsPrivileged() && booking.Status != models.BookingStatusPending {
		return nil, invalidState("Cannot update booking once it has been confirmed")
	}
	datesChanged := in.StartDate != nil || in.EndDate != nil
	if datesChanged && !booking.Status.IsActive() {
		return nil, invalidState("Cannot change the dates of a cancelled booking")
	}

	var interval models.DateInterval
	if datesChanged {
		if interval, err = s.updatedInterval(booking, in); err != nil {
			return nil, err
		}
	}
	var pickupID, dropoffID *primitive.ObjectID
	if in.PickupLocationID != nil {
		oid, err := s.existingLocation(ctx, *in.PickupLocationID, "Pickup location")
		if err != nil {
			return nil, err
		}
		pickupID = &oid
	}
	if in.DropoffLocationID != nil {
		oid, err := s.existingLocation(ctx, *in.DropoffLocationID, "Dropoff location")
		if err != nil {
			return nil, err
		}
		dropoffID = &oid
	}

	var previous []models.DateInterval
	moved := false
	if datesChanged {
		if err := hold.Load(ctx); err != nil {
			return nil, err
		}
		old := booking.Interval()
		if !hold.Available(interval, &old) {
			return nil, conflict("Vehicle is not available for the selected dates")
		}
		previous = hold.Dates()
		if moved = !interval.Equal(old); moved {
			if err := hold.Move(ctx, old, interval); err != nil {
				return nil, err
			}
		}

		price := availability.PriceBooking(hold.Vehicle.PricePerDay, interval, models.QuoteOptions{})
		booking.StartDate = interval.StartDate
		booking.EndDate = interval.EndDate
		booking.TotalDays = price.TotalDays
		booking.TotalPrice = price.BasePrice
		booking.ServiceFee = price.ServiceFee
	}
	if pickupID != nil {
		booking.PickupLocation = *pickupID
	}
	if dropoffID != nil {
		booking.DropoffLocation = *dropoffID
	}
	if in.SpecialRequests != nil {
		booking.SpecialRequests = strings.TrimSpace(*in.SpecialRequests)
	}
	booking.UpdatedAt = s.now()

	if err := s.store.Bookings.UpdateBooking(ctx, booking); err != nil {
		if moved {
			s.restore(ctx, hold, previous, booking.ID)
		}
		return nil, fromStore(err, "Booking")
	}

	if moved {
		s.log.WithFields(log.Fields{
			"booking_id": booking.ID.Hex(),
			"vehicle_id": booking.Vehicle.Hex(),
			"start":      interval.StartDate.Format(time.RFC3339),
			"end":        interval.EndDate.Format(time.RFC3339),
		}).Info("booking dates changed")
		s.publishAvailability(ctx, hold.Vehicle)
	}
	return booking, nil
}

// updatedInterval merges the supplied dates into the booking's range.
func (s *BookingService) updatedInterval(booking *models.Booking, in UpdateBookingInput) (models.DateInterval, error) {
	interval := booking.Interval()
	if in.StartDate != nil {
		t, ok := ParseDate(*in.StartDate)
		if !ok {
			return interval, invalidInput("Invalid start date %q", *in.StartDate)
		}
		interval.StartDate = t
	}
	if in.EndDate != nil {
		t, ok := ParseDate(*in.EndDate)
		if !ok {
			return interval, invalidInput("Invalid end date %q", *in.EndDate)
		}
		interval.EndDate = t
	}
	if !interval.Valid() {
		return interval, invalidInput("End date must be after start date")
	}
	if in.StartDate != nil && interval.StartDate.Before(s.now()) {
		return interval, invalidInput("Start date cannot be in the past")
	}
	return interval, nil
}

func (s *BookingService) existingLocation(ctx context.Context, id, what string) (primitive.ObjectID, error) {
	location, err := s.store.Locations.FindLocationByID(ctx, id)
	if err != nil {
		return primitive.NilObjectID, fromStore(err, what)
	}
	return location.ID, nil
}

// Cancel cancels a booking and frees its dates.
func (s *BookingService) Cancel(ctx context.Context, actor *models.Claims, id string) (*models.Booking, error) {
	booking, hold, err := s.lockBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	if booking.Status.IsTerminal() {
		return nil, invalidState("Cannot cancel a booking that is already %s", booking.Status)
	}
	if !actor.IsPrivileged() &&
		booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusConfirmed {
		return nil, invalidState("Cannot cancel booking that is already in progress or completed")
	}
	if err := s.transition(ctx, hold, booking, models.BookingStatusCancelled); err != nil {
		return nil, err
	}
	return booking, nil
}

// UpdateStatus moves a booking along the lifecycle. Privileged actors only.
func (s *BookingService) UpdateStatus(ctx context.Context, actor *models.Claims, id string, status string) (*models.Booking, error) {
	if !actor.IsPrivileged() {
		return nil, forbidden("Not authorized to change booking status")
	}
	next := models.BookingStatus(status)
	if !models.IsValidBookingStatus(next) {
		names := make([]string, len(models.BookingStatuses))
		for i, st := range models.BookingStatuses {
			names[i] = string(st)
		}
		return nil, invalidInput("Status must be one of: %s", strings.Join(names, ", "))
	}

	booking, hold, err := s.lockBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	if !booking.Status.CanTransitionTo(next) {
		return nil, invalidState("Cannot change booking status from %s to %s", booking.Status, next)
	}
	if err := s.transition(ctx, hold, booking, next); err != nil {
		return nil, err
	}
	return booking, nil
}

// transition writes the new status, freeing the vehicle's dates when the
// booking is cancelled. The caller holds the vehicle's lock.
func (s *BookingService) transition(ctx context.Context, hold *vehicleHold, booking *models.Booking, next models.BookingStatus) error {
	previousStatus := booking.Status

	var previousDates []models.DateInterval
	freed := false
	if next == models.BookingStatusCancelled {
		err := hold.Load(ctx)
		switch {
		case errors.Is(err, ErrNotFound):
			// vehicle removed; nothing left to free
		case err != nil:
			return err
		default:
			previousDates = hold.Dates()
			if err := hold.Free(ctx, booking.Interval()); err != nil {
				return err
			}
			freed = true
		}
	}

	booking.Status = next
	booking.UpdatedAt = s.now()
	if err := s.store.Bookings.UpdateBooking(ctx, booking); err != nil {
		booking.Status = previousStatus
		if freed {
			s.restore(ctx, hold, previousDates, booking.ID)
		}
		return fromStore(err, "Booking")
	}

	s.log.WithFields(log.Fields{
		"booking_id": booking.ID.Hex(),
		"from":       previousStatus,
		"to":         next,
	}).Info("booking status changed")

	s.publish(ctx, events.BookingStatusChanged, events.NewBookingData(booking, previousStatus))
	if freed {
		s.publishAvailability(ctx, hold.Vehicle)
	}
	return nil
}

// restore puts back the vehicle's dates after the booking write failed.
func (s *BookingService) restore(ctx context.Context, hold *vehicleHold, dates []models.DateInterval, bookingID primitive.ObjectID) {
	if err := hold.Commit(context.WithoutCancel(ctx), dates); err != nil {
		s.log.WithFields(log.Fields{
			"booking_id": bookingID.Hex(),
			"vehicle_id": hold.Vehicle.ID.Hex(),
		}).WithError(err).Error("failed to restore vehicle booked dates")
	}
}

// Quote prices a rental with optional add-ons. Nothing is stored and
// availability is not checked.
func (s *BookingService) Quote(ctx context.Context, in QuoteInput) (*models.Quote, error) {
	if blank(in.VehicleID, in.StartDate, in.EndDate) {
		return nil, invalidInput("Vehicle ID, start date, and end date are required")
	}
	interval, err := parseInterval(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.store.Vehicles.FindVehicleByID(ctx, in.VehicleID)
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}

	price := availability.PriceBooking(vehicle.PricePerDay, interval, in.Options)
	return &models.Quote{
		VehicleID:   vehicle.ID.Hex(),
		VehicleName: vehicle.Name,
		Duration: models.QuoteDuration{
			StartDate: interval.StartDate,
			EndDate:   interval.EndDate,
			TotalDays: price.TotalDays,
		},
		Pricing: price,
		Options: in.Options,
	}, nil
}

// ListUserBookings returns a user's bookings, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, actor *models.Claims, userID string) ([]models.BookingView, error) {
	if !actor.IsPrivileged() && !actor.Owns(userID) {
		return nil, forbidden("Not authorized to access these bookings")
	}
	oid, err := db.ParseID(userID)
	if err != nil {
		return nil, fromStore(err, "User")
	}
	bookings, err := s.store.Bookings.FindBookingsByUser(ctx, oid)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, bookings, false)
}

// populate attaches vehicle and location summaries. detailed selects the
// single-booking shape (price and full address) over the list shape (city).
func (s *BookingService) populate(ctx context.Context, bookings []models.Booking, detailed bool) ([]models.BookingView, error) {
	vehicleIDs := make([]primitive.ObjectID, 0, len(bookings))
	locationIDs := make([]primitive.ObjectID, 0, 2*len(bookings))
	for _, b := range bookings {
		vehicleIDs = append(vehicleIDs, b.Vehicle)
		locationIDs = append(locationIDs, b.PickupLocation, b.DropoffLocation)
	}

	vehicles, err := s.store.Vehicles.FindVehiclesByIDs(ctx, dedupe(vehicleIDs))
	if err != nil {
		return nil, err
	}
	locations, err := s.store.Locations.FindLocationsByIDs(ctx, dedupe(locationIDs))
	if err != nil {
		return nil, err
	}

	vehicleByID := make(map[primitive.ObjectID]models.Vehicle, len(vehicles))
	for _, v := range vehicles {
		vehicleByID[v.ID] = v
	}
	locationByID := make(map[primitive.ObjectID]models.Location, len(locations))
	for _, l := range locations {
		locationByID[l.ID] = l
	}

	summarize := func(id primitive.ObjectID) *models.LocationSummary {
		l, ok := locationByID[id]
		if !ok {
			return nil
		}
		summary := &models.LocationSummary{ID: l.ID, Name: l.Name}
		if detailed {
			address := l.Address
			summary.Address = &address
		} else {
			summary.City = l.Address.City
		}
		return summary
	}

	views := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		view := models.NewBookingView(b)
		if v, ok := vehicleByID[b.Vehicle]; ok {
			view.Vehicle = &models.VehicleSummary{ID: v.ID, Name: v.Name, Type: v.Type, Images: v.Images}
			if detailed {
				view.Vehicle.PricePerDay = v.PricePerDay
			}
		}
		view.PickupLocation = summarize(b.PickupLocation)
		view.DropoffLocation = summarize(b.DropoffLocation)
		views = append(views, view)
	}
	return views, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, data interface{}) {
	err := s.publisher.Publish(ctx, events.Event{Type: eventType, Timestamp: s.now().UTC(), Data: data})
	if err != nil {
		s.log.WithField("event", eventType).WithError(err).Warn("failed to publish event")
	}
}

func (s *BookingService) publishAvailability(ctx context.Context, vehicle *models.Vehicle) {
	s.publish(ctx, events.VehicleAvailabilityChanged, events.AvailabilityData{
		VehicleID:   vehicle.ID.Hex(),
		BookedDates: vehicle.BookedDates,
	})
}

// actorID returns the actor's user ID.
func actorID(actor *models.Claims) (primitive.ObjectID, error) {
	if actor == nil {
		return primitive.NilObjectID, forbidden("Authentication required")
	}
	oid, err := db.ParseID(actor.UserID)
	if err != nil {
		return primitive.NilObjectID, forbidden("Invalid actor")
	}
	return oid, nil
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
