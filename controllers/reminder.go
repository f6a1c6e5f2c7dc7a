// controllers/reminder.go
package controllers

import (
	"context"
	"errors"
	"net/http"

	"salonpro-reminders/models"
	"salonpro-reminders/repository"
	"salonpro-reminders/services"
	"salonpro-reminders/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReminderScheduler is the scheduler surface the admin endpoints drive.
type ReminderScheduler interface {
	Start() bool
	Stop() bool
	Restart()
	Status() services.Status
	TriggerManual(ctx context.Context, t models.ReminderType) (services.RunResult, error)
	TriggerCleanup(ctx context.Context) services.CleanupResult
}

// ReminderController handles scheduler administration and delivery log lookups.
type ReminderController struct {
	Scheduler ReminderScheduler
	Logs      repository.ReminderLogRepository
	Log       logrus.FieldLogger
}

// GetStatus returns the scheduler state and its registered tasks
func (rc *ReminderController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, rc.Scheduler.Status())
}

func (rc *ReminderController) Start(c *gin.Context) {
	changed := rc.Scheduler.Start()
	c.JSON(http.StatusOK, gin.H{"changed": changed, "status": rc.Scheduler.Status()})
}

func (rc *ReminderController) Stop(c *gin.Context) {
	changed := rc.Scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"changed": changed, "status": rc.Scheduler.Status()})
}

func (rc *ReminderController) Restart(c *gin.Context) {
	rc.Scheduler.Restart()
	c.JSON(http.StatusOK, gin.H{"changed": true, "status": rc.Scheduler.Status()})
}

// Trigger runs one reminder type immediately, e.g. POST /admin/reminders/trigger/long
func (rc *ReminderController) Trigger(c *gin.Context) {
	reminderType, err := models.ParseReminderType(c.Param("type"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid reminder type: use 24h_before or 2h_before")
		return
	}

	result, err := rc.Scheduler.TriggerManual(c.Request.Context(), reminderType)
	if err != nil {
		if errors.Is(err, services.ErrUnknownReminderType) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid reminder type")
			return
		}
		rc.Log.WithError(err).WithField("reminder_type", reminderType).Error("manual reminder run failed")
		utils.RespondWithError(c, http.StatusInternalServerError, "Reminder run failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminderType": reminderType, "result": result})
}

func (rc *ReminderController) Cleanup(c *gin.Context) {
	c.JSON(http.StatusOK, rc.Scheduler.TriggerCleanup(c.Request.Context()))
}

// GetAppointmentLogs lists every delivery attempt for one appointment of the caller's salon
func (rc *ReminderController) GetAppointmentLogs(c *gin.Context) {
	salonID, ok := salonFromContext(c)
	if !ok {
		return
	}

	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid appointment ID format")
		return
	}

	entries, err := rc.Logs.ListByAppointment(c.Request.Context(), appointmentID)
	if err != nil {
		rc.Log.WithError(err).WithField("appointment_id", appointmentID).Error("failed to list reminder logs")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve reminder logs")
		return
	}

	logs := make([]models.ReminderLog, 0, len(entries))
	for _, e := range entries {
		if e.SalonID == salonID {
			logs = append(logs, e)
		}
	}
	c.JSON(http.StatusOK, logs)
}
