package routes

import (
	"net/http"

	"salonpro-reminders/config"
	"salonpro-reminders/controllers"
	"salonpro-reminders/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Deps is everything the router hands to its controllers.
type Deps struct {
	Reminders   *controllers.ReminderController
	Push        *controllers.PushController
	JWTSecret   string
	CORSOrigins []string
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
	Log      logrus.FieldLogger
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// cors rejects an empty origin list
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	}

	r.Use(config.PerformanceLogger(d.Log))

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(d.JWTSecret))
	{
		push := api.Group("/push")
		{
			push.POST("/subscribe", d.Push.Subscribe)
			push.POST("/unsubscribe", d.Push.Unsubscribe)
			push.GET("/vapid-key", d.Push.GetVAPIDKey)
		}
	}

	admin := r.Group("/admin")
	admin.Use(utils.AuthMiddleware(d.JWTSecret), utils.RequireRole(utils.RoleAdmin))
	{
		reminders := admin.Group("/reminders")
		{
			reminders.GET("/status", d.Reminders.GetStatus)
			reminders.POST("/trigger/:type", d.Reminders.Trigger)
			reminders.POST("/start", d.Reminders.Start)
			reminders.POST("/stop", d.Reminders.Stop)
			reminders.POST("/restart", d.Reminders.Restart)
			reminders.POST("/cleanup", d.Reminders.Cleanup)
			reminders.GET("/appointments/:id/logs", d.Reminders.GetAppointmentLogs)
		}
	}

	return r
}
