package repository

import (
	"context"
	"fmt"

	"salonpro-reminders/models"

	"gorm.io/gorm"
)

// DueFilter selects appointments on one calendar date whose start time falls
// in [From, To] (both HH:MM:SS, inclusive).
type DueFilter struct {
	Date     string
	From     string
	To       string
	Statuses []models.AppointmentStatus
}

// AppointmentRepository is the read side of the booking subsystem.
type AppointmentRepository interface {
	FindDue(ctx context.Context, filter DueFilter) ([]models.DueAppointment, error)
}

type AppointmentRepositoryImpl struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepositoryImpl {
	return &AppointmentRepositoryImpl{db: db}
}

// FindDue loads appointments with their client, service and salon display
// fields, ordered by date and start time.
func (r *AppointmentRepositoryImpl) FindDue(ctx context.Context, filter DueFilter) ([]models.DueAppointment, error) {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = models.ReminderEligibleStatuses
	}

	var rows []models.DueAppointment
	err := r.db.WithContext(ctx).
		Table("appointments AS a").
		Select(`a.id AS appointment_id, a.salon_id, a.client_id, a.date, a.start_time,
			c.name AS client_name, c.email AS client_email, c.phone AS client_phone,
			s.name AS service_name,
			sa.name AS salon_name, sa.phone AS salon_phone, sa.address AS salon_address`).
		Joins("JOIN clients c ON c.id = a.client_id").
		Joins("JOIN services s ON s.id = a.service_id").
		Joins("JOIN salons sa ON sa.id = a.salon_id").
		Where("a.status IN ?", statuses).
		Where("a.date = ?", filter.Date).
		Where("a.start_time BETWEEN ? AND ?", filter.From, filter.To).
		Order("a.date, a.start_time").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load due appointments: %w", err)
	}
	return rows, nil
}
