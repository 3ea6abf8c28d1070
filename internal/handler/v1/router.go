package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type RouterDeps struct {
	Appointments AppointmentService
	Providers    ProviderService
	Reservations ReservationService
	Tokens       middleware.TokenValidator

	Readiness      []ReadinessCheck
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
	CORS           config.CORSConfig
	ServiceName    string
	Log            *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log),
		middleware.Tracing(d.ServiceName),
		middleware.Logger(d.Log),
		middleware.CORS(d.CORS),
	)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", readiness(d.Readiness))
	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if d.RateLimiter != nil {
		api.Use(middleware.RateLimit(d.RateLimiter))
	}
	api.Use(middleware.Authenticate(d.Tokens))

	appts := NewAppointmentHandler(d.Appointments)
	providers := NewProviderHandler(d.Providers)
	resas := NewReservationHandler(d.Reservations)

	patient := middleware.RequireRoles(domain.RolePatient)
	booker := middleware.RequireRoles(domain.RolePatient, domain.RoleReceptionist, domain.RoleAdmin)
	planner := middleware.RequireRoles(domain.RoleDoctor, domain.RoleReceptionist, domain.RoleAdmin)
	scheduler := middleware.RequireRoles(domain.RoleDoctor, domain.RoleAdmin)
	frontDesk := middleware.RequireRoles(domain.RoleReceptionist, domain.RoleAdmin)

	api.GET("/availability/:providerId", appts.Availability)
	api.GET("/specialties", providers.Specialties)

	api.POST("/appointments", booker, appts.Book)
	api.GET("/appointments/history", patient, appts.History)
	api.GET("/appointments/stats", patient, appts.Stats)
	api.PUT("/appointments/:id", patient, appts.Reschedule)
	api.DELETE("/appointments/:id", patient, appts.Delete)

	api.GET("/providers", providers.List)
	api.GET("/providers/:providerId", providers.Get)
	api.GET("/providers/:providerId/planning", planner, appts.DayPlanning)
	api.PUT("/providers/:providerId/schedule", scheduler, providers.UpdateSchedule)
	api.POST("/providers/:providerId/absences", scheduler, providers.AddAbsence)
	api.DELETE("/providers/:providerId/absences/:index", scheduler, providers.RemoveAbsence)

	api.GET("/rooms/available", frontDesk, resas.AvailableRooms)
	api.GET("/reservations", frontDesk, resas.List)
	api.POST("/reservations", frontDesk, resas.Create)
	api.PUT("/reservations/:id", frontDesk, resas.Update)
	api.PATCH("/reservations/:id/cancel", frontDesk, resas.Cancel)
	api.DELETE("/reservations/:id", frontDesk, resas.Delete)

	return r
}

func readiness(checks []ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, chk := range checks {
			if err := chk.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[chk.Name] = err.Error()
				continue
			}
			results[chk.Name] = "ok"
		}
		c.JSON(status, gin.H{"checks": results})
	}
}
