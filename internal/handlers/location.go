package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/models"
	"github.com/ukydev/vehicle-rental/internal/service"
)

// LocationService is the location registry as the HTTP layer uses it.
type LocationService interface {
	List(ctx context.Context, filter db.LocationFilter) (*service.LocationList, error)
	Get(ctx context.Context, id string) (*models.Location, error)
	Create(ctx context.Context, in service.LocationInput) (*models.Location, error)
	Update(ctx context.Context, id string, in service.LocationInput) (*models.Location, error)
	Delete(ctx context.Context, id string) error
	Availability(ctx context.Context, id, startDate, endDate string) (*service.LocationAvailability, error)
}

// LocationHandler serves the location endpoints.
type LocationHandler struct {
	locations LocationService
	log       log.FieldLogger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locations LocationService, logger log.FieldLogger) *LocationHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LocationHandler{locations: locations, log: logger}
}

// List handles GET /locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.LocationFilter{
		Country: strings.TrimSpace(q.Get("country")),
		City:    strings.TrimSpace(q.Get("city")),
		Search:  strings.TrimSpace(q.Get("search")),
	}
	var ok bool
	if filter.Active, ok = queryBool(r, "active"); !ok {
		writeMessage(w, http.StatusBadRequest, "active must be true or false")
		return
	}
	if filter.Page, ok = queryInt(r, "page"); !ok {
		writeMessage(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	if filter.Limit, ok = queryInt(r, "limit"); !ok {
		writeMessage(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	list, err := h.locations.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /locations/{id}
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	location, err := h.locations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

// Create handles POST /locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.LocationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	location, err := h.locations.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

// Update handles PUT /locations/{id}
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.LocationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	location, err := h.locations.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

// Delete handles DELETE /locations/{id}
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.locations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Location removed")
}

// Availability handles GET /locations/{id}/availability
func (h *LocationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.locations.Availability(r.Context(), chi.URLParam(r, "id"), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
