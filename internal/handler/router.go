package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-homework-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Auth      *AuthHandler
	Homework  *HomeworkHandler
	Class     *ClassHandler
	Calendar  *CalendarHandler
	Dashboard *DashboardHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts every API route on router. Routes other than the
// Google sign-in flow require a bearer token accepted by tokens.
func RegisterRoutes(router gin.IRouter, h Handlers, tokens middleware.TokenValidator) {
	auth := router.Group("/auth")
	auth.GET("/google/url", h.Auth.GoogleURL)
	auth.GET("/google/callback", h.Auth.GoogleCallback)

	secured := router.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.DELETE("/auth/google", h.Auth.Disconnect)
	secured.GET("/users/me", h.Auth.Me)
	secured.PUT("/users/me/timezone", h.Auth.UpdateTimezone)

	homework := secured.Group("/homework")
	homework.GET("", h.Homework.List)
	homework.GET("/export", h.Homework.Export)
	homework.POST("", h.Homework.Create)
	homework.GET("/:id", h.Homework.Get)
	homework.PUT("/:id", h.Homework.Update)
	homework.DELETE("/:id", h.Homework.Delete)
	homework.POST("/:id/complete", h.Homework.Complete)
	homework.POST("/:id/reopen", h.Homework.Reopen)

	classes := secured.Group("/classes")
	classes.GET("", h.Class.List)
	classes.POST("", h.Class.Create)
	classes.GET("/:id", h.Class.Get)
	classes.PUT("/:id", h.Class.Update)
	classes.DELETE("/:id", h.Class.Delete)

	calendar := secured.Group("/calendar")
	calendar.POST("/sync", h.Calendar.SyncAll)
	calendar.POST("/sync/:id", h.Calendar.SyncOne)
	calendar.GET("/status", h.Calendar.Status)

	if h.Dashboard != nil {
		secured.GET("/dashboard/summary", h.Dashboard.Summary)
	}

	if h.Metrics != nil {
		secured.GET("/metrics/summary", h.Metrics.Summary)
	}
}
