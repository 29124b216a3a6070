// Package router sets up the HTTP routing for the application.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"tally/internal/handlers"
	"tally/internal/middleware"
)

// Router holds the handlers and middleware dependencies of the API.
type Router struct {
	Auth     *handlers.AuthHandler
	Expenses *handlers.ExpenseHandler
	Reports  *handlers.ReportHandler

	Tokens  *middleware.TokenManager
	Metrics *middleware.Metrics

	// Gatherer backs /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer      prometheus.Gatherer
	MetricsAPIKey string
	CORSOrigin    string
}

// Setup builds the gin engine with all middleware and routes.
func (r *Router) Setup() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogging())
	if r.Metrics != nil {
		engine.Use(r.Metrics.Middleware())
	}
	engine.Use(middleware.ErrorHandler())
	engine.Use(middleware.CORS(r.CORSOrigin))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found: " + c.Request.URL.Path,
		})
	})

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/metrics", middleware.APIKeyMiddleware(r.MetricsAPIKey), gin.WrapH(r.metricsHandler()))

	v1 := engine.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", r.Auth.Register)
	auth.POST("/login", r.Auth.Login)
	auth.POST("/logout", r.Auth.Logout)
	auth.GET("/me", middleware.AuthMiddleware(r.Tokens), r.Auth.Me)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(r.Tokens))

	expenses := protected.Group("/expenses")
	expenses.POST("", r.Expenses.CreateExpense)
	expenses.GET("", r.Expenses.ListExpenses)
	expenses.GET("/:id", r.Expenses.GetExpense)
	expenses.PUT("/:id", r.Expenses.UpdateExpense)
	expenses.DELETE("/:id", r.Expenses.DeleteExpense)

	reports := protected.Group("/reports")
	reports.POST("/preview", r.Reports.PreviewReport)
	reports.POST("/pdf", r.Reports.GenerateReport)
	reports.GET("", r.Reports.ListReports)
	reports.GET("/:id/pdf", r.Reports.DownloadReport)

	return engine
}

func (r *Router) metricsHandler() http.Handler {
	if r.Gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{})
}
