package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"machine-manual-backend/internal/auth"
	"machine-manual-backend/internal/mw"
)

// limiterIdleTTL is how long a quiet client keeps its rate limiter.
const limiterIdleTTL = 10 * time.Minute

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, verifier auth.Verifier, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(log))
	if len(h.cfg.Server.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(h.cfg.Server.TrustedProxies); err != nil {
			log.WithError(err).Warn("ignoring invalid trusted proxies")
		}
	} else {
		_ = r.SetTrustedProxies(nil)
	}

	limiter := mw.NewIPRateLimiter(rate.Limit(h.cfg.Server.RateLimitPerSec), h.cfg.Server.RateLimitBurst, limiterIdleTTL)
	rateLimiter := mw.RateLimiter(limiter)
	admin := mw.AdminAuth(verifier)

	r.GET("/healthz", h.Health)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "route not found", Code: "NOT_FOUND"})
	})

	// Public pages reached through QR codes
	public := r.Group("/")
	public.Use(rateLimiter)
	{
		public.GET("/m/:slug", h.PublicMachine)
		public.GET("/qr/:file", h.QRImage)
	}

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/dashboard", h.Dashboard)

		api.GET("/machines", h.ListMachines)
		api.POST("/machines", h.CreateMachine)
		api.GET("/machines/:id", h.GetMachine)
		api.PATCH("/machines/:id", h.UpdateMachine)
		api.DELETE("/machines/:id", admin, h.DeleteMachine)

		api.GET("/machines/:id/issues", h.ListMachineIssues)
		api.POST("/machines/:id/issues", h.CreateIssue)
		api.GET("/machines/:id/maintenance", h.ListMaintenance)
		api.POST("/machines/:id/maintenance", h.CreateMaintenance)
		api.GET("/machines/:id/export/issues", h.ExportIssues)
		api.GET("/machines/:id/export/maintenance", h.ExportMaintenance)

		api.GET("/issues/:id", h.GetIssue)
		api.POST("/issues/:id/status", h.SetIssueStatus)
		api.POST("/issues/:id/close", h.CloseIssue)
		api.POST("/issues/:id/updates", h.AddIssueUpdate)

		employees := api.Group("/employees", admin)
		{
			employees.GET("", h.ListEmployees)
			employees.POST("", h.CreateEmployee)
			employees.GET("/:id", h.GetEmployee)
			employees.PATCH("/:id", h.UpdateEmployee)
			employees.POST("/:id/deactivate", h.DeactivateEmployee)
			employees.POST("/:id/reactivate", h.ReactivateEmployee)
		}
	}

	return r
}
