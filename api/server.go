package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"auction_tracker/models"
	"auction_tracker/services"
)

// CycleRunner runs one poll + reconcile + notify cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleResult, error)
}

// ScanController starts scans and reports on them.
type ScanController interface {
	Start(ctx context.Context) models.ScanStartResult
	Status() models.ScanStatus
	Results() []models.ClassificationResult
}

// Server exposes the on-demand triggers over HTTP.
type Server struct {
	cycles    CycleRunner
	scans     ScanController
	reconcile *services.ReconcileService
}

func NewServer(cycles CycleRunner, scans ScanController, reconcile *services.ReconcileService) *Server {
	return &Server{cycles: cycles, scans: scans, reconcile: reconcile}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/listings", s.handleListings)
	r.POST("/api/listings/:id/bookmark", s.handleBookmark)
	r.POST("/api/scrape", s.handleScrape)
	r.POST("/api/scan", s.handleStartScan)
	r.GET("/api/scan/status", s.handleScanStatus)
	r.GET("/api/scan/results", s.handleScanResults)
	return r
}
