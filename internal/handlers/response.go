package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/middleware"
	"github.com/ukydev/vehicle-rental/internal/models"
	"github.com/ukydev/vehicle-rental/internal/service"
)

// statusFor maps a service error to an HTTP status and client message.
// Unclassified errors become a generic 500.
func statusFor(err error) (int, string) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		return http.StatusInternalServerError, "Internal server error"
	}
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest, svcErr.Message
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, svcErr.Message
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, svcErr.Message
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, svcErr.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError writes err as a JSON message. Server errors are logged with
// the request ID and their detail is withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, logger log.FieldLogger, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": chimiddleware.GetReqID(r.Context()),
		}).WithError(err).Error("request failed")
	}
	writeMessage(w, status, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// actor returns the authenticated user or answers 401.
func actor(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return claims, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

func queryFloat(r *http.Request, name string) (*float64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}

func queryBool(r *http.Request, name string) (*bool, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, false
	}
	return &b, true
}
