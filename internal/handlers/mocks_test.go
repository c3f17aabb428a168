package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/models"
	"github.com/ukydev/vehicle-rental/internal/service"
)

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, actor *models.Claims, in service.CreateBookingInput) (*models.Booking, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, actor *models.Claims, id string) (*models.BookingView, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingView), args.Error(1)
}

func (m *MockBookingService) Receipt(ctx context.Context, actor *models.Claims, id string) ([]byte, string, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockBookingService) Update(ctx context.Context, actor *models.Claims, id string, in service.UpdateBookingInput) (*models.Booking, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, actor *models.Claims, id string) (*models.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) UpdateStatus(ctx context.Context, actor *models.Claims, id string, status string) (*models.Booking, error) {
	args := m.Called(ctx, actor, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) Quote(ctx context.Context, in service.QuoteInput) (*models.Quote, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *MockBookingService) ListUserBookings(ctx context.Context, actor *models.Claims, userID string) ([]models.BookingView, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookingView), args.Error(1)
}

// MockVehicleService is a mock implementation of VehicleService
type MockVehicleService struct {
	mock.Mock
}

func (m *MockVehicleService) List(ctx context.Context, filter db.VehicleFilter) (*service.VehicleList, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VehicleList), args.Error(1)
}

func (m *MockVehicleService) Get(ctx context.Context, id string) (*models.VehicleDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VehicleDetail), args.Error(1)
}

func (m *MockVehicleService) Create(ctx context.Context, in service.VehicleInput) (*models.Vehicle, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleService) Update(ctx context.Context, id string, in service.VehicleInput) (*models.Vehicle, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVehicleService) Types(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockVehicleService) Available(ctx context.Context, startDate, endDate, locationID string) ([]models.VehicleDetail, error) {
	args := m.Called(ctx, startDate, endDate, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VehicleDetail), args.Error(1)
}

func (m *MockVehicleService) Pricing(ctx context.Context, id string) (*models.RateCard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RateCard), args.Error(1)
}

func (m *MockVehicleService) AddReview(ctx context.Context, actor *models.Claims, id string, in service.ReviewInput) (*models.Review, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockVehicleService) Reviews(ctx context.Context, id string) (*service.ReviewList, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewList), args.Error(1)
}

// MockLocationService is a mock implementation of LocationService
type MockLocationService struct {
	mock.Mock
}

func (m *MockLocationService) List(ctx context.Context, filter db.LocationFilter) (*service.LocationList, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LocationList), args.Error(1)
}

func (m *MockLocationService) Get(ctx context.Context, id string) (*models.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationService) Create(ctx context.Context, in service.LocationInput) (*models.Location, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationService) Update(ctx context.Context, id string, in service.LocationInput) (*models.Location, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLocationService) Availability(ctx context.Context, id, startDate, endDate string) (*service.LocationAvailability, error) {
	args := m.Called(ctx, id, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LocationAvailability), args.Error(1)
}
