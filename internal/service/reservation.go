package service

import (
	"context"

	"github.com/ukydev/vehicle-rental/internal/availability"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/lock"
	"github.com/ukydev/vehicle-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// reservations owns every write of a vehicle's booked dates. Each write
// happens under the per-vehicle lock and is a compare-and-swap on the
// vehicle's version.
type reservations struct {
	vehicles db.VehicleCollection
	locker   lock.Locker
}

// vehicleHold is a locked vehicle. Once loaded, Vehicle reflects the latest
// committed state while the hold is open.
type vehicleHold struct {
	r       *reservations
	id      primitive.ObjectID
	Vehicle *models.Vehicle
	unlock  func()
}

func lockKey(id primitive.ObjectID) string {
	return "vehicle:" + id.Hex()
}

// lock takes the vehicle's lock without loading it.
func (r *reservations) lock(ctx context.Context, id primitive.ObjectID) (*vehicleHold, error) {
	unlock, err := r.locker.Lock(ctx, lockKey(id))
	if err != nil {
		return nil, fromStore(err, "Vehicle")
	}
	return &vehicleHold{r: r, id: id, unlock: unlock}, nil
}

// acquire locks the vehicle and loads it.
func (r *reservations) acquire(ctx context.Context, id primitive.ObjectID) (*vehicleHold, error) {
	hold, err := r.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := hold.Load(ctx); err != nil {
		hold.Release()
		return nil, err
	}
	return hold, nil
}

// Load reads the vehicle. Only call it while the hold is open.
func (h *vehicleHold) Load(ctx context.Context) error {
	vehicle, err := h.r.vehicles.FindVehicleByID(ctx, h.id.Hex())
	if err != nil {
		return fromStore(err, "Vehicle")
	}
	h.Vehicle = vehicle
	return nil
}

// Release unlocks the vehicle.
func (h *vehicleHold) Release() {
	h.unlock()
}

// Available reports whether interval is free, ignoring one exact occurrence
// of exclude.
func (h *vehicleHold) Available(interval models.DateInterval, exclude *models.DateInterval) bool {
	return availability.CheckAvailability(h.Vehicle.BookedDates, interval, exclude)
}

// Dates returns a copy of the current booked dates.
func (h *vehicleHold) Dates() []models.DateInterval {
	return append([]models.DateInterval(nil), h.Vehicle.BookedDates...)
}

// Commit writes dates as the vehicle's booked dates.
func (h *vehicleHold) Commit(ctx context.Context, dates []models.DateInterval) error {
	if dates == nil {
		dates = []models.DateInterval{}
	}
	if err := h.r.vehicles.UpdateBookedDates(ctx, h.Vehicle.ID, dates, h.Vehicle.Version); err != nil {
		return fromStore(err, "Vehicle")
	}
	h.Vehicle.BookedDates = dates
	h.Vehicle.Version++
	return nil
}

// Reserve appends interval.
func (h *vehicleHold) Reserve(ctx context.Context, interval models.DateInterval) error {
	return h.Commit(ctx, availability.Reserve(h.Vehicle.BookedDates, interval))
}

// Free removes every exact occurrence of interval.
func (h *vehicleHold) Free(ctx context.Context, interval models.DateInterval) error {
	return h.Commit(ctx, availability.Release(h.Vehicle.BookedDates, interval))
}

// Move replaces from with to in a single write.
func (h *vehicleHold) Move(ctx context.Context, from, to models.DateInterval) error {
	dates := availability.Release(h.Vehicle.BookedDates, from)
	return h.Commit(ctx, availability.Reserve(dates, to))
}
