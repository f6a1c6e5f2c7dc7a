package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"salonpro-reminders/models"
	"salonpro-reminders/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(channel models.Channel) ReservationKey {
	return ReservationKey{
		SalonID:       uuid.New(),
		AppointmentID: uuid.New(),
		ClientID:      uuid.New(),
		ReminderType:  models.ReminderLongLead,
		Channel:       channel,
	}
}

func TestReserveIsExclusiveUntilFailed(t *testing.T) {
	repo := NewReminderLogRepository(testutil.NewDB(t))
	ctx := context.Background()
	key := newKey(models.ChannelEmail)

	first, ok, err := repo.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DeliverySending, first.Status)

	_, ok, err = repo.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "key held by a sending reservation")

	require.NoError(t, repo.MarkFailed(ctx, first.ID, "smtp timeout"))

	second, ok, err := repo.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok, "failed attempts release the key")

	require.NoError(t, repo.MarkSent(ctx, second.ID, time.Now().UTC()))

	_, ok, err = repo.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "key held by a sent entry")

	logs, err := repo.ListByAppointment(ctx, key.AppointmentID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	statuses := []models.DeliveryStatus{logs[0].Status, logs[1].Status}
	assert.ElementsMatch(t, []models.DeliveryStatus{models.DeliveryFailed, models.DeliverySent}, statuses)
}

func TestReserveIsPerChannelAndType(t *testing.T) {
	repo := NewReminderLogRepository(testutil.NewDB(t))
	ctx := context.Background()
	key := newKey(models.ChannelEmail)

	_, ok, err := repo.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	push := key
	push.Channel = models.ChannelPush
	_, ok, err = repo.Reserve(ctx, push)
	require.NoError(t, err)
	assert.True(t, ok)

	short := key
	short.ReminderType = models.ReminderShortLead
	_, ok, err = repo.Reserve(ctx, short)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReserveConcurrentCallersGetOneReservation(t *testing.T) {
	repo := NewReminderLogRepository(testutil.NewDB(t))
	key := newKey(models.ChannelEmail)

	const callers = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.Reserve(context.Background(), key)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}

func TestMarkSentOnlyMovesReservations(t *testing.T) {
	repo := NewReminderLogRepository(testutil.NewDB(t))
	ctx := context.Background()

	entry, ok, err := repo.Reserve(ctx, newKey(models.ChannelPush))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.MarkFailed(ctx, entry.ID, "gone"))

	err = repo.MarkSent(ctx, entry.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeBeforeAndReleaseStale(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewReminderLogRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -91)

	oldSent := models.ReminderLog{
		AppointmentID: uuid.New(), SalonID: uuid.New(), ClientID: uuid.New(),
		ReminderType: models.ReminderLongLead, Channel: models.ChannelEmail,
		Status: models.DeliverySent, CreatedAt: old,
	}
	recentFailed := models.ReminderLog{
		AppointmentID: uuid.New(), SalonID: uuid.New(), ClientID: uuid.New(),
		ReminderType: models.ReminderShortLead, Channel: models.ChannelPush,
		Status: models.DeliveryFailed, CreatedAt: now.Add(-time.Hour),
	}
	staleReservation := models.ReminderLog{
		AppointmentID: uuid.New(), SalonID: uuid.New(), ClientID: uuid.New(),
		ReminderType: models.ReminderShortLead, Channel: models.ChannelEmail,
		Status: models.DeliverySending, CreatedAt: now.Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(&oldSent).Error)
	require.NoError(t, db.Create(&recentFailed).Error)
	require.NoError(t, db.Create(&staleReservation).Error)

	purged, err := repo.PurgeBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	released, err := repo.ReleaseStale(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	logs, err := repo.ListByAppointment(ctx, staleReservation.AppointmentID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.DeliveryFailed, logs[0].Status)
	assert.Equal(t, "reservation expired", logs[0].ErrorMessage)

	var remaining int64
	require.NoError(t, db.Model(&models.ReminderLog{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}
