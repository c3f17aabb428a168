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

// VehicleService is the vehicle catalog as the HTTP layer uses it.
type VehicleService interface {
	List(ctx context.Context, filter db.VehicleFilter) (*service.VehicleList, error)
	Get(ctx context.Context, id string) (*models.VehicleDetail, error)
	Create(ctx context.Context, in service.VehicleInput) (*models.Vehicle, error)
	Update(ctx context.Context, id string, in service.VehicleInput) (*models.Vehicle, error)
	Delete(ctx context.Context, id string) error
	Types(ctx context.Context) ([]string, error)
	Available(ctx context.Context, startDate, endDate, locationID string) ([]models.VehicleDetail, error)
	Pricing(ctx context.Context, id string) (*models.RateCard, error)
	AddReview(ctx context.Context, actor *models.Claims, id string, in service.ReviewInput) (*models.Review, error)
	Reviews(ctx context.Context, id string) (*service.ReviewList, error)
}

// VehicleHandler serves the vehicle catalog endpoints.
type VehicleHandler struct {
	vehicles VehicleService
	log      log.FieldLogger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles VehicleService, logger log.FieldLogger) *VehicleHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &VehicleHandler{vehicles: vehicles, log: logger}
}

// vehicleFilter reads the listing query: type, location, minPrice,
// maxPrice, available, seats, search, sortBy, order, page and limit.
func vehicleFilter(r *http.Request) (db.VehicleFilter, string) {
	q := r.URL.Query()
	filter := db.VehicleFilter{
		Type:      models.VehicleType(q.Get("type")),
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    q.Get("sortBy"),
		Ascending: strings.EqualFold(q.Get("order"), "asc"),
	}
	if v := q.Get("location"); v != "" {
		oid, err := db.ParseID(v)
		if err != nil {
			return filter, "Invalid location ID"
		}
		filter.Location = &oid
	}
	var ok bool
	if filter.MinPrice, ok = queryFloat(r, "minPrice"); !ok {
		return filter, "minPrice must be a number"
	}
	if filter.MaxPrice, ok = queryFloat(r, "maxPrice"); !ok {
		return filter, "maxPrice must be a number"
	}
	if filter.Available, ok = queryBool(r, "available"); !ok {
		return filter, "available must be true or false"
	}
	seats, ok := queryInt(r, "seats")
	if !ok {
		return filter, "seats must be an integer"
	}
	filter.MinSeats = int(seats)
	if filter.Page, ok = queryInt(r, "page"); !ok {
		return filter, "page must be an integer"
	}
	if filter.Limit, ok = queryInt(r, "limit"); !ok {
		return filter, "limit must be an integer"
	}
	return filter, ""
}

// List handles GET /vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, problem := vehicleFilter(r)
	if problem != "" {
		writeMessage(w, http.StatusBadRequest, problem)
		return
	}
	list, err := h.vehicles.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /vehicles/{id}
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.vehicles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Create handles POST /vehicles
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.VehicleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	vehicle, err := h.vehicles.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// Update handles PUT /vehicles/{id}
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.VehicleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	vehicle, err := h.vehicles.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Delete handles DELETE /vehicles/{id}
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.vehicles.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Vehicle removed")
}

// Types handles GET /vehicles/types
func (h *VehicleHandler) Types(w http.ResponseWriter, r *http.Request) {
	types, err := h.vehicles.Types(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// Available handles GET /vehicles/availability
func (h *VehicleHandler) Available(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vehicles, err := h.vehicles.Available(r.Context(), q.Get("startDate"), q.Get("endDate"), q.Get("locationId"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// Pricing handles GET /vehicles/{id}/pricing
func (h *VehicleHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	card, err := h.vehicles.Pricing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// AddReview handles POST /vehicles/{id}/reviews
func (h *VehicleHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	var in service.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	review, err := h.vehicles.AddReview(r.Context(), claims, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Review added", "review": review})
}

// Reviews handles GET /vehicles/{id}/reviews
func (h *VehicleHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.vehicles.Reviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
