// Package api implements the secret-authenticated HTTP management API
// described in spec §6: bind, unbind, and list registered applications.
// It follows controller_go/api.go's structure — a gin.Engine behind
// gin-contrib/cors, one handler method per route, request structs tagged
// for binding.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"autoscaler/internal/app"
	"autoscaler/internal/registry"
	"autoscaler/internal/store"
	vld "autoscaler/internal/validate"
)

// BindRequest is the inbound JSON body for POST /bindings. Fields map
// directly onto a Binding plus the scheduling parameters a fresh
// ScalableApp needs; go-playground/validator enforces the structural
// rules before vld.Blueprint checks the domain rules.
type BindRequest struct {
	ID         string            `json:"id" binding:"required"`
	ResourceID string            `json:"resourceId" binding:"required"`
	ScalerID   string            `json:"scalerId"`
	ServiceID  string            `json:"serviceId"`
	Context    map[string]string `json:"context"`

	CPU     store.WrapperBlueprint `json:"cpu" binding:"required"`
	RAM     store.WrapperBlueprint `json:"ram" binding:"required"`
	Request store.WrapperBlueprint `json:"request" binding:"required"`
	Latency store.WrapperBlueprint `json:"latency" binding:"required"`

	MinInstances              int     `json:"minInstances"`
	MaxInstances              int     `json:"maxInstances"`
	MinQuotient               float64 `json:"minQuotient"`
	CooldownSeconds           float64 `json:"cooldownSeconds"`
	LearningTimeMultiplier    float64 `json:"learningTimeMultiplier"`
	ScalingIntervalMultiplier int     `json:"scalingIntervalMultiplier"`
}

// ResponseApplication is returned on a successful bind.
type ResponseApplication struct {
	ID           string `json:"id"`
	ResourceID   string `json:"resourceId"`
	ResourceName string `json:"resourceName,omitempty"`
}

// ErrorMessage is the structured body for 422 and 500 responses.
type ErrorMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NameResolver resolves a bound resourceId to a human-readable name,
// optionally pushing it to the scaling engine. cmd/autoscaler supplies
// the concrete implementation wired to internal/engine.
type NameResolver interface {
	ResolveAndBind(resourceID string) (string, error)
}

// Server is the gin-backed HTTP management API.
type Server struct {
	reg    *registry.Manager
	st     store.Store
	names  NameResolver
	secret string
	router *gin.Engine

	maxMetricListSize int
	maxMetricAge      time.Duration
}

// New builds a Server with routes installed. maxMetricListSize and
// maxMetricAge come from the global scaler configuration (§6
// "scaler.maxMetricListSize", "scaler.maxMetricAge") and are applied to
// every app bound through this server.
func New(reg *registry.Manager, st store.Store, names NameResolver, secret string, maxMetricListSize int, maxMetricAge time.Duration) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "secret"},
		AllowCredentials: true,
	}))

	s := &Server{
		reg: reg, st: st, names: names, secret: secret, router: router,
		maxMetricListSize: maxMetricListSize, maxMetricAge: maxMetricAge,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.authRequired)
	s.router.POST("/bindings", s.createBinding)
	s.router.DELETE("/bindings/:id", s.deleteBinding)
	s.router.GET("/bindings", s.listBindings)
	s.router.GET("/bindings/serviceInstance/:serviceId", s.listBindingsByService)
	s.router.GET("/bindings/:id/scalingHistory", s.scalingHistory)
	s.router.GET("/health", s.health)
}

// Run starts the HTTP server on addr, blocking until it returns an error.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) authRequired(c *gin.Context) {
	if c.FullPath() == "/health" {
		c.Next()
		return
	}
	if c.GetHeader("secret") != s.secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad secret"})
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createBinding(c *gin.Context) {
	var req BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusUnprocessableEntity, ErrorMessage{Kind: "ValidationError", Message: err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	bp := store.Blueprint{
		Binding: store.BindingBlueprint{
			ID:           req.ID,
			ResourceID:   req.ResourceID,
			ScalerID:     req.ScalerID,
			ServiceID:    req.ServiceID,
			Context:      req.Context,
			CreationTime: now.UnixMilli(),
		},
		CPU:                       req.CPU,
		RAM:                       req.RAM,
		Request:                   req.Request,
		Latency:                   req.Latency,
		MinInstances:              req.MinInstances,
		MaxInstances:              req.MaxInstances,
		MinQuotient:               req.MinQuotient,
		CooldownSeconds:           req.CooldownSeconds,
		LearningTimeMultiplier:    req.LearningTimeMultiplier,
		ScalingIntervalMultiplier: req.ScalingIntervalMultiplier,
		MaxMetricListSize:         s.maxMetricListSize,
		MaxMetricAgeSeconds:       s.maxMetricAge.Seconds(),
		LastScalingTimeMillis:     now.UnixMilli(),
		LearningStartMillis:       now.UnixMilli(),
	}

	if existing := s.reg.Get(req.ID); existing != nil {
		if sameBinding(existing.Binding, bp.Binding.ToBinding()) {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "binding id exists with different fields"})
		return
	}
	if s.reg.ContainsResourceID(req.ResourceID) {
		c.JSON(http.StatusConflict, gin.H{"error": "resourceId already bound"})
		return
	}

	if err := vld.Blueprint(bp); err != nil {
		if ve, ok := err.(*vld.Error); ok && ve.Kind == vld.KindSpecialCharacter {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a := app.New(bp.ToConfig())
	if !s.reg.Add(a, false) {
		c.JSON(http.StatusConflict, gin.H{"error": "binding id or resourceId already bound"})
		return
	}

	resp := ResponseApplication{ID: a.Binding.ID, ResourceID: a.Binding.ResourceID}
	if s.names != nil {
		if name, err := s.names.ResolveAndBind(a.Binding.ResourceID); err == nil {
			resp.ResourceName = name
			err := a.WithLock(c.Request.Context(), func() error {
				a.Binding = a.Binding.WithResourceName(name)
				return s.reg.UpdateInStore(a)
			})
			if err != nil {
				log.Printf("[api] failed to persist resolved resourceName for %s: %v", a.Binding.ID, err)
			}
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) deleteBinding(c *gin.Context) {
	id := c.Param("id")
	if !s.reg.Remove(id) {
		c.JSON(http.StatusGone, gin.H{"error": "binding not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) listBindings(c *gin.Context) {
	apps := s.reg.GetFlatCopyOfApps()
	out := make([]app.Binding, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.Binding)
	}
	c.JSON(http.StatusOK, gin.H{"bindings": out})
}

func (s *Server) listBindingsByService(c *gin.Context) {
	serviceID := c.Param("serviceId")
	apps := s.reg.GetFlatCopyOfApps()
	out := make([]app.Binding, 0)
	for _, a := range apps {
		if a.Binding.ServiceID == serviceID {
			out = append(out, a.Binding)
		}
	}
	c.JSON(http.StatusOK, gin.H{"bindings": out})
}

// scalingHistory returns the most recent scaling decisions recorded for
// a binding (store.ScalingHistory, §3's ScalingLog read path spec.md
// itself never provides). Defaults to the 20 most recent entries;
// ?limit= overrides it.
func (s *Server) scalingHistory(c *gin.Context) {
	id := c.Param("id")
	if !s.reg.Contains(id) {
		c.JSON(http.StatusGone, gin.H{"error": "binding not found"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := s.reg.GetScalingHistory(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorMessage{Kind: "InternalError", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scalingHistory": history})
}

func sameBinding(a, b app.Binding) bool {
	if a.ResourceID != b.ResourceID || a.ScalerID != b.ScalerID || a.ServiceID != b.ServiceID {
		return false
	}
	if len(a.Context) != len(b.Context) {
		return false
	}
	for k, v := range a.Context {
		if b.Context[k] != v {
			return false
		}
	}
	return true
}
