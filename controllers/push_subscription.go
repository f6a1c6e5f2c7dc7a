// controllers/push_subscription.go
package controllers

import (
	"net/http"

	"salonpro-reminders/services"
	"salonpro-reminders/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SubscribeInput is the browser's PushSubscription.toJSON() plus the client it belongs to
type SubscribeInput struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
	ClientID *uuid.UUID `json:"clientId"`
}

type UnsubscribeInput struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// PushController registers and removes Web Push endpoints
type PushController struct {
	Subscriptions  *services.SubscriptionService
	VAPIDPublicKey string
	Log            logrus.FieldLogger
}

func (pc *PushController) Subscribe(c *gin.Context) {
	salonID, ok := salonFromContext(c)
	if !ok {
		return
	}

	var input SubscribeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	outcome, err := pc.Subscriptions.Subscribe(c.Request.Context(), services.SubscribeInput{
		SalonID:  salonID,
		ClientID: input.ClientID,
		UserID:   userFromContext(c),
		Endpoint: input.Endpoint,
		P256dh:   input.Keys.P256dh,
		Auth:     input.Keys.Auth,
	})
	if err != nil {
		pc.Log.WithError(err).WithField("salon_id", salonID).Error("failed to save push subscription")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save subscription")
		return
	}

	status := http.StatusOK
	if outcome == services.SubscriptionCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"status": outcome})
}

func (pc *PushController) Unsubscribe(c *gin.Context) {
	salonID, ok := salonFromContext(c)
	if !ok {
		return
	}

	var input UnsubscribeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if err := pc.Subscriptions.Unsubscribe(c.Request.Context(), salonID, input.Endpoint); err != nil {
		pc.Log.WithError(err).Error("failed to remove push subscription")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to remove subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription removed"})
}

// GetVAPIDKey returns the application server key browsers need to subscribe
func (pc *PushController) GetVAPIDKey(c *gin.Context) {
	if pc.VAPIDPublicKey == "" {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Push notifications are not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": pc.VAPIDPublicKey})
}
