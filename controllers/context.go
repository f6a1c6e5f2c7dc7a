package controllers

import (
	"net/http"

	"salonpro-reminders/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// salonFromContext reads the tenant set by utils.AuthMiddleware. It writes the
// error response itself and reports false when there is none.
func salonFromContext(c *gin.Context) (uuid.UUID, bool) {
	salonID, exists := c.Get("salonId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Salon ID not found in context")
		return uuid.Nil, false
	}
	raw, _ := salonID.(string)
	salonUUID, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid salon ID format")
		return uuid.Nil, false
	}
	return salonUUID, true
}

// userFromContext returns the token subject when it is a uuid.
func userFromContext(c *gin.Context) *uuid.UUID {
	raw, _ := c.Get("userId")
	s, _ := raw.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
