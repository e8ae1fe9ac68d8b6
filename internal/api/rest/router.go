// Package rest provides the Gin-based HTTP API.
package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/JonasSouza871/rfid-catalog/internal/catalog"
	"github.com/JonasSouza871/rfid-catalog/internal/history"
	"github.com/JonasSouza871/rfid-catalog/internal/reader"
	"github.com/JonasSouza871/rfid-catalog/internal/workflow"
)

// Server is the REST API server.
type Server struct {
	engine *gin.Engine
	svc    *workflow.Service
	hist   *history.Log
	sim    *reader.Sim
	logger *zap.Logger
}

// New creates a REST Server. sim may be nil when a real reader is attached;
// the simulate-tap endpoint is only mounted in sim mode.
func New(svc *workflow.Service, hist *history.Log, sim *reader.Sim, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		svc:    svc,
		hist:   hist,
		sim:    sim,
		logger: logger,
	}
	s.registerRoutes()
	return s
}

// Start starts the REST server on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("REST API listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

// Engine exposes the underlying gin engine for httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger-ui/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group("/api")
	{
		api.GET("/items", s.items)
		api.GET("/status", s.status)
		api.GET("/register", s.register)
		api.GET("/identify", s.identify)
		api.GET("/rename", s.rename)
		api.GET("/delete", s.delete)
		api.GET("/history", s.history)
		if s.sim != nil {
			api.POST("/simulate-tap", s.simulateTap)
		}
	}
}

// --- Catalog handlers ---

// @Summary List cataloged items
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/items [get]
func (s *Server) items(c *gin.Context) {
	items := s.svc.Items()
	c.JSON(http.StatusOK, gin.H{
		"count": len(items),
		"items": items,
	})
}

// @Summary Pending operation and catalog status
// @Tags catalog
// @Produce json
// @Success 200 {object} workflow.Status
// @Router /api/status [get]
func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Status())
}

// @Summary Arm registration for the next card
// @Tags catalog
// @Produce json
// @Param name query string true "Item name"
// @Success 200 {object} map[string]any
// @Router /api/register [get]
func (s *Server) register(c *gin.Context) {
	name := c.Query("name")
	if err := s.svc.BeginRegister(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "name must be 1-31 characters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "present a card to register '" + name + "'"})
}

func (s *Server) identify(c *gin.Context) {
	s.svc.BeginIdentify()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "present a card to identify"})
}

func (s *Server) rename(c *gin.Context) {
	name := c.Query("name")
	if err := s.svc.BeginRename(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "name must be 1-31 characters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "present a card to rename to '" + name + "'"})
}

func (s *Server) delete(c *gin.Context) {
	err := s.svc.DeleteByHex(c.Query("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "item deleted"})
	case errors.Is(err, catalog.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "id must be colon-separated hex, e.g. 04:A1:B2:C3"})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "tag not cataloged"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
	}
}

// --- History handlers ---

func (s *Server) history(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := s.hist.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// --- Simulator handlers ---

// simulateTap presents a card to the simulated reader, standing in for a
// physical tap during development.
func (s *Server) simulateTap(c *gin.Context) {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	id, err := catalog.ParseID(body.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "id must be colon-separated hex, e.g. 04:A1:B2:C3"})
		return
	}
	s.sim.Tap(id)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "card presented"})
}
