package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"auction_tracker/models"
	"auction_tracker/scraper"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListings(c *gin.Context) {
	bookmarked, recent, err := s.reconcile.Display(c.Request.Context())
	if err != nil {
		log.Printf("[API] List listings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if bookmarked == nil {
		bookmarked = []models.ListingRecord{}
	}
	if recent == nil {
		recent = []models.ListingRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"bookmarked": bookmarked,
		"recent":     recent,
	})
}

type bookmarkRequest struct {
	Bookmarked *bool `json:"bookmarked"`
}

// handleBookmark toggles the flag, or sets it when the body carries
// {"bookmarked": bool}.
func (s *Server) handleBookmark(c *gin.Context) {
	id := c.Param("id")

	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	value, found, err := s.reconcile.Bookmark(c.Request.Context(), id, req.Bookmarked)
	if err != nil {
		log.Printf("[API] Bookmark %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "listing not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": id, "bookmarked": value})
}

func (s *Server) handleScrape(c *gin.Context) {
	result, err := s.cycles.RunCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
			"blocked": scraper.IsAccessBlocked(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"new":       result.NewCount(),
		"updated":   result.UpdatedCount(),
		"timestamp": models.Timestamp(time.Now()),
	})
}

func (s *Server) handleStartScan(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": s.scans.Start(c.Request.Context())})
}

func (s *Server) handleScanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.scans.Status())
}

func (s *Server) handleScanResults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  s.scans.Status(),
		"results": s.scans.Results(),
	})
}
