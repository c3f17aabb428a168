// Package service implements the booking lifecycle, the vehicle catalog and
// the location registry on top of the db collections.
package service

import (
	"math"
	"strings"
	"time"

	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/models"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Store groups the collections the services read and write.
type Store struct {
	Vehicles  db.VehicleCollection
	Locations db.LocationCollection
	Bookings  db.BookingCollection
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage int64 `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func normalizePage(page, limit int64) (int64, int64) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func newPagination(page, limit, total int64) Pagination {
	pages := int64(math.Ceil(float64(total) / float64(limit)))
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC
// midnight).
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseInterval parses both ends and requires start < end.
func parseInterval(start, end string) (models.DateInterval, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return models.DateInterval{}, invalidInput("Start date and end date are required")
	}
	s, ok := ParseDate(start)
	if !ok {
		return models.DateInterval{}, invalidInput("Invalid start date %q", start)
	}
	e, ok := ParseDate(end)
	if !ok {
		return models.DateInterval{}, invalidInput("Invalid end date %q", end)
	}
	interval := models.DateInterval{StartDate: s, EndDate: e}
	if !interval.Valid() {
		return models.DateInterval{}, invalidInput("End date must be after start date")
	}
	return interval, nil
}
