package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jbkim/weather-batch/pkg/config"
)

// Server wraps the gin engine and the underlying http.Server.
type Server struct {
	router *gin.Engine
	srv    *http.Server
}

func NewServer(cfg config.HTTPConfig) *Server {
	router := gin.Default()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		router: router,
		srv:    srv,
	}
}

// SetupRoutes registers the operator endpoints.
func (s *Server) SetupRoutes(handlers *Handlers) {
	s.router.GET("/health", handlers.HealthCheck)

	v1 := s.router.Group("/api/v1")
	{
		batch := v1.Group("/batch")
		{
			batch.POST("/collect", handlers.TriggerCollection)
			batch.POST("/statistics", handlers.TriggerStatistics)
			batch.POST("/alerts", handlers.TriggerAlerts)
		}

		weather := v1.Group("/weather")
		{
			weather.GET("/current", handlers.GetCurrentWeather)
			weather.GET("/abnormal", handlers.GetAbnormalWeather)
		}

		stats := v1.Group("/statistics")
		{
			stats.GET("/recent", handlers.GetRecentStatistics)
			stats.GET("/national", handlers.GetNationalAverage)
		}

		alerts := v1.Group("/alerts")
		{
			alerts.GET("/active", handlers.GetActiveAlerts)
			alerts.GET("/unsent", handlers.GetUnsentAlerts)
		}
	}
}

// Start serves until the listener fails. It does not block on shutdown;
// call Shutdown from the signal handler.
func (s *Server) Start() {
	go func() {
		log.Printf("HTTP server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
}

// Shutdown drains in-flight requests with a bounded grace period.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown failed: %v", err)
		return
	}
	log.Println("HTTP server stopped")
}
