// Package httpapi serves stored reports and live suite progress over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sysyjudge/internal/report"
)

// Server exposes the report directory and the progress hub.
type Server struct {
	reportsDir string
	hub        *Hub
	engine     *gin.Engine
	http       *http.Server
	logger     *log.Logger
}

// NewServer builds the router for reportsDir and hub.
func NewServer(reportsDir string, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	route := gin.New()
	route.Use(gin.Recovery())
	route.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet},
		AllowHeaders:    []string{"*"},
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{
		reportsDir: reportsDir,
		hub:        hub,
		engine:     route,
		logger:     logger,
	}

	route.GET("/healthz", s.health)
	route.GET("/reports", s.listReports)
	route.GET("/reports/:name", s.getReport)
	route.GET("/progress", s.progress)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr in the background. Serve errors other than a clean
// shutdown are logged.
func (s *Server) Start(addr string) {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("http server: %v", err)
		}
	}()
}

// Shutdown stops the listener and disconnects progress subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listReports(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := dateparse.ParseLocal(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since: " + err.Error()})
			return
		}
		since = parsed
	}

	entries, err := report.List(s.reportsDir, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []report.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getReport(c *gin.Context) {
	data, err := report.Read(s.reportsDir, c.Param("name"))
	if errors.Is(err, report.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

func (s *Server) progress(c *gin.Context) {
	s.hub.ServeWS(c.Writer, c.Request)
}
