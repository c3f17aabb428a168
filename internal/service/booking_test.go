package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-rental/internal/events"
	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBookingService_Create(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, 3, booking.TotalDays)
	assert.Equal(t, 150.0, booking.TotalPrice)
	assert.Equal(t, 15.0, booking.ServiceFee)
	assert.Equal(t, f.owner.UserID, booking.User.Hex())
	assert.Equal(t, []models.DateInterval{span("2030-02-01", "2030-02-04")}, f.vehicles.dates(f.vehicle.ID))
	assert.Equal(t, []string{events.BookingCreated, events.VehicleAvailabilityChanged}, f.publisher.types())
}

func TestBookingService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	tests := []struct {
		name  string
		actor *models.Claims
		input CreateBookingInput
		kind  error
	}{
		{"missing actor", nil, f.createInput("2030-02-01", "2030-02-04"), ErrForbidden},
		{"missing field", f.owner, CreateBookingInput{VehicleID: f.vehicle.ID.Hex()}, ErrInvalidInput},
		{"bad date", f.owner, f.createInput("soon", "2030-02-04"), ErrInvalidInput},
		{"end before start", f.owner, f.createInput("2030-02-04", "2030-02-01"), ErrInvalidInput},
		{"empty range", f.owner, f.createInput("2030-02-04", "2030-02-04"), ErrInvalidInput},
		{"start in past", f.owner, f.createInput("2029-12-01", "2029-12-04"), ErrInvalidInput},
		{"bad vehicle id", f.owner, func() CreateBookingInput {
			in := f.createInput("2030-02-01", "2030-02-04")
			in.VehicleID = "nope"
			return in
		}(), ErrInvalidInput},
		{"unknown vehicle", f.owner, func() CreateBookingInput {
			in := f.createInput("2030-02-01", "2030-02-04")
			in.VehicleID = primitive.NewObjectID().Hex()
			return in
		}(), ErrNotFound},
		{"unknown dropoff", f.owner, func() CreateBookingInput {
			in := f.createInput("2030-02-01", "2030-02-04")
			in.DropoffLocationID = primitive.NewObjectID().Hex()
			return in
		}(), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Equal(t, 0, f.bookings.count())
	assert.Empty(t, f.vehicles.dates(f.vehicle.ID))
}

func TestBookingService_CreateOverlap(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	_, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)

	_, err = s.Create(ctx, f.other, f.createInput("2030-02-03", "2030-02-06"))
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Vehicle is not available for the selected dates", err.Error())

	// touching ranges do not overlap
	_, err = s.Create(ctx, f.other, f.createInput("2030-02-04", "2030-02-06"))
	require.NoError(t, err)
	assert.Len(t, f.vehicles.dates(f.vehicle.ID), 2)
}

func TestBookingService_ConcurrentCreates(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleUser}
			_, errs[i] = s.Create(ctx, actor, f.createInput("2030-03-01", "2030-03-05"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.bookings.count())
	assert.Len(t, f.vehicles.dates(f.vehicle.ID), 1)
}

func TestBookingService_CreateRollsBackOnReserveFailure(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	f.vehicles.failCommit = 1

	_, err := s.Create(context.Background(), f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.ErrorIs(t, err, errStore)

	assert.Equal(t, 0, f.bookings.count())
	assert.Len(t, f.bookings.deleted, 1)
	assert.Empty(t, f.vehicles.dates(f.vehicle.ID))
	assert.Empty(t, f.publisher.types())
}

func TestBookingService_CreateInsertFailureLeavesVehicleUntouched(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	f.bookings.failInsert = true

	_, err := s.Create(context.Background(), f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.ErrorIs(t, err, errStore)
	assert.Empty(t, f.vehicles.dates(f.vehicle.ID))
	assert.Equal(t, 0, f.vehicles.commits)
}

func TestBookingService_GetOwnership(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)

	view, err := s.Get(ctx, f.owner, booking.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, view.Vehicle)
	assert.Equal(t, "Civic", view.Vehicle.Name)
	assert.Equal(t, 50.0, view.Vehicle.PricePerDay)
	require.NotNil(t, view.PickupLocation)
	require.NotNil(t, view.PickupLocation.Address)
	assert.Equal(t, "Springfield", view.PickupLocation.Address.City)
	assert.Equal(t, "Airport", view.DropoffLocation.Name)

	_, err = s.Get(ctx, f.admin, booking.ID.Hex())
	assert.NoError(t, err)

	_, err = s.Get(ctx, f.other, booking.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.Get(ctx, f.owner, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, f.owner, "bogus")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookingService_Receipt(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)

	pdf, name, err := s.Receipt(ctx, f.owner, booking.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
	assert.Contains(t, name, booking.ID.Hex())

	_, _, err = s.Receipt(ctx, f.other, booking.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBookingService_UpdateDates(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)
	_, err = s.Create(ctx, f.other, f.createInput("2030-02-10", "2030-02-12"))
	require.NoError(t, err)

	// overlapping only its own range is allowed
	end := "2030-02-06"
	updated, err := s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalDays)
	assert.Equal(t, 250.0, updated.TotalPrice)
	assert.Equal(t, 25.0, updated.ServiceFee)
	assert.ElementsMatch(t, []models.DateInterval{
		span("2030-02-01", "2030-02-06"),
		span("2030-02-10", "2030-02-12"),
	}, f.vehicles.dates(f.vehicle.ID))

	end = "2030-02-11"
	_, err = s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{EndDate: &end})
	assert.ErrorIs(t, err, ErrConflict)

	past := "2029-06-01"
	_, err = s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{StartDate: &past})
	assert.ErrorIs(t, err, ErrInvalidInput)

	start := "2030-02-07"
	_, err = s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{StartDate: &start})
	assert.ErrorIs(t, err, ErrInvalidInput, "start after the stored end")
}

func TestBookingService_UpdateFields(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)
	commits := f.vehicles.commits

	requests := "  child seat  "
	pickup := f.dropoff.ID.Hex()
	updated, err := s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{
		SpecialRequests:  &requests,
		PickupLocationID: &pickup,
	})
	require.NoError(t, err)
	assert.Equal(t, "child seat", updated.SpecialRequests)
	assert.Equal(t, f.dropoff.ID, updated.PickupLocation)
	assert.Equal(t, commits, f.vehicles.commits, "no date change, no vehicle write")

	missing := primitive.NewObjectID().Hex()
	_, err = s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{DropoffLocationID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Update(ctx, f.other, booking.ID.Hex(), UpdateBookingInput{SpecialRequests: &requests})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBookingService_UpdateStatusRules(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, f.admin, booking.ID.Hex(), "confirmed")
	require.NoError(t, err)

	requests := "late pickup"
	_, err = s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{SpecialRequests: &requests})
	assert.ErrorIs(t, err, ErrInvalidState)

	updated, err := s.Update(ctx, f.admin, booking.ID.Hex(), UpdateBookingInput{SpecialRequests: &requests})
	require.NoError(t, err)
	assert.Equal(t, "late pickup", updated.SpecialRequests)

	_, err = s.Cancel(ctx, f.owner, booking.ID.Hex())
	require.NoError(t, err)

	end := "2030-02-05"
	_, err = s.Update(ctx, f.admin, booking.ID.Hex(), UpdateBookingInput{EndDate: &end})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBookingService_UpdateRestoresDatesOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)

	f.bookings.failUpdate = true
	end := "2030-02-08"
	_, err = s.Update(ctx, f.owner, booking.ID.Hex(), UpdateBookingInput{EndDate: &end})
	require.ErrorIs(t, err, errStore)

	assert.Equal(t, []models.DateInterval{span("2030-02-01", "2030-02-04")}, f.vehicles.dates(f.vehicle.ID))
}

func TestBookingService_Cancel(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)

	_, err = s.Cancel(ctx, f.other, booking.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := s.Cancel(ctx, f.owner, booking.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	assert.Empty(t, f.vehicles.dates(f.vehicle.ID))

	_, err = s.Cancel(ctx, f.owner, booking.ID.Hex())
	assert.ErrorIs(t, err, ErrInvalidState)

	// the freed range can be booked again
	_, err = s.Create(ctx, f.other, f.createInput("2030-02-01", "2030-02-04"))
	assert.NoError(t, err)

	assert.Contains(t, f.publisher.types(), events.BookingStatusChanged)
}

func TestBookingService_CancelInProgress(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)
	for _, st := range []string{"confirmed", "in-progress"} {
		_, err = s.UpdateStatus(ctx, f.admin, booking.ID.Hex(), st)
		require.NoError(t, err)
	}

	_, err = s.Cancel(ctx, f.owner, booking.ID.Hex())
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Cancel(ctx, f.admin, booking.ID.Hex())
	assert.NoError(t, err)
	assert.Empty(t, f.vehicles.dates(f.vehicle.ID))
}

func TestBookingService_CancelRestoresDatesOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)

	f.bookings.failUpdate = true
	_, err = s.Cancel(ctx, f.owner, booking.ID.Hex())
	require.ErrorIs(t, err, errStore)
	assert.Len(t, f.vehicles.dates(f.vehicle.ID), 1)

	stored, err := f.bookings.FindBookingByID(ctx, booking.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, stored.Status)
}

func TestBookingService_CancelAfterVehicleRemoved(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)
	require.NoError(t, f.vehicles.DeleteVehicle(ctx, f.vehicle.ID))

	cancelled, err := s.Cancel(ctx, f.owner, booking.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
}

func TestBookingService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	booking, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)
	id := booking.ID.Hex()

	_, err = s.UpdateStatus(ctx, f.owner, id, "confirmed")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.UpdateStatus(ctx, f.admin, id, "shipped")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "pending, confirmed, in-progress, completed, cancelled")

	_, err = s.UpdateStatus(ctx, f.admin, id, "completed")
	assert.ErrorIs(t, err, ErrInvalidState)

	for _, st := range []string{"confirmed", "in-progress", "completed"} {
		updated, err := s.UpdateStatus(ctx, f.admin, id, st)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatus(st), updated.Status)
	}
	// completing keeps the range on the vehicle
	assert.Len(t, f.vehicles.dates(f.vehicle.ID), 1)

	_, err = s.UpdateStatus(ctx, f.admin, id, "cancelled")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBookingService_Quote(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()

	quote, err := s.Quote(context.Background(), QuoteInput{
		VehicleID: f.vehicle.ID.Hex(),
		StartDate: "2030-02-01",
		EndDate:   "2030-02-04",
		Options:   models.QuoteOptions{Insurance: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Civic", quote.VehicleName)
	assert.Equal(t, 3, quote.Duration.TotalDays)
	assert.Equal(t, 150.0, quote.Pricing.BasePrice)
	assert.True(t, quote.Options.Insurance)
	assert.Equal(t, 0, f.bookings.count())

	_, err = s.Quote(context.Background(), QuoteInput{VehicleID: f.vehicle.ID.Hex(), StartDate: "2030-02-01"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookingService_ListUserBookings(t *testing.T) {
	f := newFixture(t)
	s := f.bookingService()
	ctx := context.Background()

	first, err := s.Create(ctx, f.owner, f.createInput("2030-02-01", "2030-02-04"))
	require.NoError(t, err)
	s.now = func() time.Time { return fixtureNow.Add(time.Hour) }
	second, err := s.Create(ctx, f.owner, f.createInput("2030-02-10", "2030-02-12"))
	require.NoError(t, err)

	views, err := s.ListUserBookings(ctx, f.owner, f.owner.UserID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)
	assert.Equal(t, "Springfield", views[0].PickupLocation.City)
	assert.Nil(t, views[0].PickupLocation.Address)

	_, err = s.ListUserBookings(ctx, f.other, f.owner.UserID)
	assert.ErrorIs(t, err, ErrForbidden)

	views, err = s.ListUserBookings(ctx, f.admin, f.other.UserID)
	require.NoError(t, err)
	assert.Empty(t, views)
}
