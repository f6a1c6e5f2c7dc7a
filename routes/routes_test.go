package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salonpro-reminders/controllers"
	"salonpro-reminders/metrics"
	"salonpro-reminders/models"
	"salonpro-reminders/repository"
	"salonpro-reminders/services"
	"salonpro-reminders/testutil"
	"salonpro-reminders/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "routes-test-secret"

type idleRunner struct{}

func (idleRunner) Run(context.Context, models.ReminderType) (services.RunResult, error) {
	return services.RunResult{Sent: 1}, nil
}

type idleCleaner struct{}

func (idleCleaner) Run(context.Context) services.CleanupResult { return services.CleanupResult{} }

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	db := testutil.NewDB(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.PrunedEndpoint.Inc()

	sched, err := services.NewScheduler(services.DefaultSchedule(time.UTC), idleRunner{}, idleCleaner{}, m, log)
	require.NoError(t, err)
	t.Cleanup(func() { sched.Stop() })

	subs := services.NewSubscriptionService(repository.NewPushSubscriptionRepository(db), log)
	return SetupRouter(Deps{
		Reminders:   &controllers.ReminderController{Scheduler: sched, Logs: repository.NewReminderLogRepository(db), Log: log},
		Push:        &controllers.PushController{Subscriptions: subs, VAPIDPublicKey: "BPublic", Log: log},
		JWTSecret:   secret,
		CORSOrigins: []string{"http://localhost:3000"},
		Gatherer:    reg,
		Log:         log,
	})
}

func request(t *testing.T, r http.Handler, method, path, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := utils.GenerateToken(secret, uuid.NewString(), uuid.NewString(), role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := request(t, r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = request(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "salonpro_reminder_pruned_push_endpoints_total 1"))
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, request(t, r, http.MethodGet, "/admin/reminders/status", "").Code)
	assert.Equal(t, http.StatusForbidden, request(t, r, http.MethodGet, "/admin/reminders/status", "staff").Code)

	w := request(t, r, http.MethodGet, "/admin/reminders/status", utils.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isRunning":false`)

	w = request(t, r, http.MethodPost, "/admin/reminders/start", utils.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isRunning":true`)
	assert.Contains(t, w.Body.String(), services.TaskShortLead)

	w = request(t, r, http.MethodPost, "/admin/reminders/trigger/short", utils.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":1`)

	w = request(t, r, http.MethodPost, "/admin/reminders/stop", utils.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isRunning":false`)
}

func TestPushRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, request(t, r, http.MethodGet, "/api/push/vapid-key", "").Code)

	w := request(t, r, http.MethodGet, "/api/push/vapid-key", "staff")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"publicKey":"BPublic"}`, w.Body.String())
}
