package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/models"
	"github.com/ukydev/vehicle-rental/internal/service"
)

// BookingService is the booking lifecycle as the HTTP layer uses it.
type BookingService interface {
	Create(ctx context.Context, actor *models.Claims, in service.CreateBookingInput) (*models.Booking, error)
	Get(ctx context.Context, actor *models.Claims, id string) (*models.BookingView, error)
	Receipt(ctx context.Context, actor *models.Claims, id string) ([]byte, string, error)
	Update(ctx context.Context, actor *models.Claims, id string, in service.UpdateBookingInput) (*models.Booking, error)
	Cancel(ctx context.Context, actor *models.Claims, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, actor *models.Claims, id string, status string) (*models.Booking, error)
	Quote(ctx context.Context, in service.QuoteInput) (*models.Quote, error)
	ListUserBookings(ctx context.Context, actor *models.Claims, userID string) ([]models.BookingView, error)
}

// BookingHandler serves the booking endpoints.
type BookingHandler struct {
	bookings BookingService
	log      log.FieldLogger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingService, logger log.FieldLogger) *BookingHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BookingHandler{bookings: bookings, log: logger}
}

type statusResponse struct {
	Message string          `json:"message"`
	Booking *models.Booking `json:"booking"`
}

// Create handles POST /bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	var in service.CreateBookingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	booking, err := h.bookings.Create(r.Context(), claims, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// Get handles GET /bookings/{id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	view, err := h.bookings.Get(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Receipt handles GET /bookings/{id}/receipt
func (h *BookingHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	pdf, filename, err := h.bookings.Receipt(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Update handles PUT /bookings/{id}
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	var in service.UpdateBookingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	booking, err := h.bookings.Update(r.Context(), claims, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Cancel handles DELETE /bookings/{id}
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	if _, err := h.bookings.Cancel(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Booking cancelled successfully")
}

// UpdateStatus handles PUT /bookings/{id}/status
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	booking, err := h.bookings.UpdateStatus(r.Context(), claims, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Message: fmt.Sprintf("Booking status updated to %s", booking.Status),
		Booking: booking,
	})
}

// Calculate handles POST /bookings/calculate
func (h *BookingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var in service.QuoteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	quote, err := h.bookings.Quote(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// ListUserBookings handles GET /users/{id}/bookings
func (h *BookingHandler) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	views, err := h.bookings.ListUserBookings(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
