package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"salonpro-reminders/models"
	"salonpro-reminders/repository"
	"salonpro-reminders/services"
	"salonpro-reminders/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type schedulerMock struct {
	mock.Mock
}

func (m *schedulerMock) Start() bool { return m.Called().Bool(0) }
func (m *schedulerMock) Stop() bool  { return m.Called().Bool(0) }
func (m *schedulerMock) Restart()    { m.Called() }

func (m *schedulerMock) Status() services.Status {
	return m.Called().Get(0).(services.Status)
}

func (m *schedulerMock) TriggerManual(ctx context.Context, t models.ReminderType) (services.RunResult, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(services.RunResult), args.Error(1)
}

func (m *schedulerMock) TriggerCleanup(ctx context.Context) services.CleanupResult {
	return m.Called(ctx).Get(0).(services.CleanupResult)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// asSalon stands in for utils.AuthMiddleware.
func asSalon(salonID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("salonId", salonID.String())
		c.Set("userId", uuid.NewString())
		c.Next()
	}
}

func reminderRouter(rc *ReminderController, salonID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/admin/reminders", asSalon(salonID))
	g.GET("/status", rc.GetStatus)
	g.POST("/start", rc.Start)
	g.POST("/stop", rc.Stop)
	g.POST("/restart", rc.Restart)
	g.POST("/trigger/:type", rc.Trigger)
	g.POST("/cleanup", rc.Cleanup)
	g.GET("/appointments/:id/logs", rc.GetAppointmentLogs)
	return r
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestReminderControllerStatusAndLifecycle(t *testing.T) {
	sched := &schedulerMock{}
	running := services.Status{IsRunning: true, TaskCount: 3, TaskNames: []string{services.TaskLongLead, services.TaskShortLead, services.TaskCleanup}}
	sched.On("Status").Return(running)
	sched.On("Start").Return(false).Once()
	sched.On("Stop").Return(true).Once()
	sched.On("Restart").Once()
	r := reminderRouter(&ReminderController{Scheduler: sched, Log: quietLogger()}, uuid.New())

	w := do(r, http.MethodGet, "/admin/reminders/status")
	require.Equal(t, http.StatusOK, w.Code)
	var st services.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.IsRunning)
	assert.Equal(t, 3, st.TaskCount)

	w = do(r, http.MethodPost, "/admin/reminders/start")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"changed":false`)

	w = do(r, http.MethodPost, "/admin/reminders/stop")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"changed":true`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/admin/reminders/restart").Code)
	sched.AssertExpectations(t)
}

func TestReminderControllerTrigger(t *testing.T) {
	sched := &schedulerMock{}
	sched.On("TriggerManual", mock.Anything, models.ReminderLongLead).Return(services.RunResult{Sent: 3, Skipped: 1}, nil).Once()
	sched.On("TriggerManual", mock.Anything, models.ReminderShortLead).Return(services.RunResult{}, assert.AnError).Once()
	r := reminderRouter(&ReminderController{Scheduler: sched, Log: quietLogger()}, uuid.New())

	w := do(r, http.MethodPost, "/admin/reminders/trigger/long")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reminderType":"24h_before","result":{"sent":3,"skipped":1,"failed":0}}`, w.Body.String())

	w = do(r, http.MethodPost, "/admin/reminders/trigger/2h_before")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Reminder run failed"}`, w.Body.String())

	w = do(r, http.MethodPost, "/admin/reminders/trigger/weekly")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	sched.AssertExpectations(t)
}

func TestReminderControllerCleanup(t *testing.T) {
	sched := &schedulerMock{}
	sched.On("TriggerCleanup", mock.Anything).Return(services.CleanupResult{LogsPurged: 7, ReservationsReleased: 1}).Once()
	r := reminderRouter(&ReminderController{Scheduler: sched, Log: quietLogger()}, uuid.New())

	w := do(r, http.MethodPost, "/admin/reminders/cleanup")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"logsPurged":7,"subscriptionsRemoved":0,"reservationsReleased":1}`, w.Body.String())
}

func TestReminderControllerAppointmentLogs(t *testing.T) {
	db := testutil.NewDB(t)
	logs := repository.NewReminderLogRepository(db)
	salonID, otherSalon := uuid.New(), uuid.New()
	appointmentID := uuid.New()
	ctx := context.Background()

	entry, ok, err := logs.Reserve(ctx, repository.ReservationKey{
		SalonID: salonID, AppointmentID: appointmentID, ClientID: uuid.New(),
		ReminderType: models.ReminderLongLead, Channel: models.ChannelEmail,
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, logs.MarkFailed(ctx, entry.ID, "mailbox unavailable"))

	rc := &ReminderController{Scheduler: &schedulerMock{}, Logs: logs, Log: quietLogger()}

	w := do(reminderRouter(rc, salonID), http.MethodGet, "/admin/reminders/appointments/"+appointmentID.String()+"/logs")
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.ReminderLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, models.DeliveryFailed, got[0].Status)
	assert.Equal(t, "mailbox unavailable", got[0].ErrorMessage)

	w = do(reminderRouter(rc, otherSalon), http.MethodGet, "/admin/reminders/appointments/"+appointmentID.String()+"/logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String(), "other tenants see nothing")

	w = do(reminderRouter(rc, salonID), http.MethodGet, "/admin/reminders/appointments/not-a-uuid/logs")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
