package handlers

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/models"
)

// AuthHandler exposes the verified actor behind a request. Tokens are issued
// by the identity provider, so there is no login here.
type AuthHandler struct {
	log log.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(logger log.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &AuthHandler{log: logger}
}

type meResponse struct {
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r)
	if !ok {
		return
	}
	resp := meResponse{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
	if claims.Exp > 0 {
		exp := time.Unix(claims.Exp, 0).UTC()
		resp.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}
