// Package server exposes the computed reports over HTTP. Reports are built
// once at startup and served from memory; only the provider and procedure
// code detail routes query the database.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/COG-GTM/devin-hhs/analysis"
	"github.com/COG-GTM/devin-hhs/db"
	"github.com/COG-GTM/devin-hhs/refdata"
)

// Store is the database access the detail routes need. *db.Queries
// implements it.
type Store interface {
	ProviderByNPI(ctx context.Context, npi string) ([]db.ProviderCode, error)
	MonthlyByNPI(ctx context.Context, npi string) ([]db.MonthlySpending, error)
	ProvidersByHCPCS(ctx context.Context, code string, limit int) ([]db.CodeProvider, error)
	MonthlyByHCPCS(ctx context.Context, code string) ([]db.MonthlySpending, error)
}

// Reports are the precomputed documents the server publishes.
type Reports struct {
	Outliers *analysis.OutlierReport
	States   analysis.StateAnalysis
	Federal  *analysis.FederalReport
	// Providers is the ranking population.
	Providers     []analysis.ProviderAggregate
	Risk          *analysis.RiskReport
	PriceVariance []analysis.PriceVariance
}

// Server is the HTTP API.
type Server struct {
	router  *gin.Engine
	reports Reports
	store   Store
	ds      *refdata.Dataset
	log     logrus.FieldLogger
}

// New builds the router. store may be nil, in which case detail routes
// answer 503.
func New(reports Reports, store Store, ds *refdata.Dataset, log logrus.FieldLogger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		router:  router,
		reports: reports,
		store:   store,
		ds:      ds,
		log:     log,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/outliers", s.handleOutliers)
		api.GET("/federal/outliers", s.handleFederalOutliers)
		api.GET("/federal/analysis", s.handleFederalAnalysis)
		api.GET("/analysis/risk", s.handleRisk)
		api.GET("/analysis/price-variance", s.handlePriceVariance)
		api.GET("/analysis/efficiency", s.handleEfficiency)
		api.GET("/rankings", s.handleRankings)
		api.GET("/sources", s.handleSources)
		api.GET("/provider/:npi", s.handleProvider)
		api.GET("/hcpcs/:code", s.handleHCPCS)
	}

	return s
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}
