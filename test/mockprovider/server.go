// Package mockprovider serves the four upstream catalog shapes with
// configurable error injection, for local runs and resilience testing.
package mockprovider

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Server is the mock provider API server
type Server struct {
	state  *State
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new mock provider server
func NewServer(state *State) *Server {
	if state == nil {
		state = NewState()
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		state:  state,
		router: router,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	s.setupRoutes()
	return s
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// State returns the underlying state for test manipulation
func (s *Server) State() *State {
	return s.state
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1/providers")
	{
		v1.GET("/sport-direct/products", s.withInjection("sport-direct", s.handleSportDirect))
		v1.GET("/outdoor-pro/products", s.withInjection("outdoor-pro", s.handleOutdoorPro))
		v1.GET("/dag-spor/products", s.withInjection("dag-spor", s.handleDagSpor))
		v1.GET("/alpine-gear/products", s.withInjection("alpine-gear", s.handleAlpineGear))
	}

	s.router.GET("/health", s.handleHealth)

	// Test control endpoints
	s.router.POST("/_test/reset", s.handleTestReset)
	s.router.POST("/_test/config", s.handleTestConfig)
}

// withInjection applies the provider's configured error behavior before the
// real handler runs.
func (s *Server) withInjection(slug string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch s.state.NextOutcome(slug) {
		case outcomeServerError:
			s.logger.Debug("injected failure", slog.String("provider", slug))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
		case outcomeRateLimited:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "slow down"})
		default:
			handler(c)
		}
	}
}

func (s *Server) handleSportDirect(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"provider": "SportDirect",
		"currency": "GBP",
		"products": s.state.SportDirectProducts(),
	})
}

func (s *Server) handleOutdoorPro(c *gin.Context) {
	items := s.state.OutdoorProItems()
	c.JSON(http.StatusOK, gin.H{
		"source": "OutdoorPro",
		"count":  len(items),
		"items":  items,
	})
}

func (s *Server) handleDagSpor(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tedarikci":   "DagSpor",
		"para_birimi": "TRY",
		"urunler":     s.state.DagSporProducts(),
	})
}

func (s *Server) handleAlpineGear(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"anbieter": "AlpineGear",
		"waehrung": "EUR",
		"produkte": s.state.AlpineGearProducts(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTestReset(c *gin.Context) {
	s.state.Reset()
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// testConfigRequest tunes a provider's error injection at runtime.
type testConfigRequest struct {
	Provider  string  `json:"provider" binding:"required"`
	ErrorRate float64 `json:"error_rate" binding:"min=0,max=1"`
	RateLimit bool    `json:"rate_limit"`
}

func (s *Server) handleTestConfig(c *gin.Context) {
	var req testConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.state.Configure(req.Provider, req.ErrorRate, req.RateLimit)
	c.JSON(http.StatusOK, gin.H{"configured": req.Provider})
}
