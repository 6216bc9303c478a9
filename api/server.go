package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brannt/skypilot/api/handlers"
	"github.com/brannt/skypilot/api/middleware"
	"github.com/brannt/skypilot/api/websocket"
	"github.com/brannt/skypilot/internal/auth"
	"github.com/brannt/skypilot/pkg/config"
	"github.com/brannt/skypilot/pkg/database"
	"github.com/brannt/skypilot/pkg/database/queries"
)

type Server struct {
	router         *gin.Engine
	httpServer     *http.Server
	config         config.APIConfig
	wsConfig       config.WebSocketConfig
	db             *database.DB
	authService    *auth.Service
	wsHub          *websocket.Hub
	wsBridge       *websocket.EventBridge
	serviceManager handlers.ServiceManager
}

func NewServer(cfg config.APIConfig, wsCfg config.WebSocketConfig, db *database.DB, serviceManager handlers.ServiceManager) *Server {
	if cfg.JWTSecret == "" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTDuration)
	wsHub := websocket.NewHub(&wsCfg)

	s := &Server{
		router:         router,
		config:         cfg,
		wsConfig:       wsCfg,
		db:             db,
		authService:    authService,
		wsHub:          wsHub,
		serviceManager: serviceManager,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	// Forward orchestrator events to WebSocket clients
	if serviceManager != nil {
		eventsChan := serviceManager.SubscribeAllEvents()
		s.wsBridge = websocket.NewEventBridge(wsHub, eventsChan)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(s.corsConfig()))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestSizeLimit(1 << 20))

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) corsConfig() middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	if len(s.config.CORS.AllowedOrigins) > 0 {
		cfg.AllowOrigins = s.config.CORS.AllowedOrigins
	}
	if len(s.config.CORS.AllowedMethods) > 0 {
		cfg.AllowMethods = s.config.CORS.AllowedMethods
	}
	if len(s.config.CORS.AllowedHeaders) > 0 {
		cfg.AllowHeaders = s.config.CORS.AllowedHeaders
	}
	if len(s.config.CORS.ExposedHeaders) > 0 {
		cfg.ExposeHeaders = s.config.CORS.ExposedHeaders
	}
	cfg.AllowCredentials = s.config.CORS.AllowCredentials
	return cfg
}

func (s *Server) setupRoutes() {
	// Repositories
	var userRepo *queries.UserRepository
	var serviceRepo *queries.ServiceRepository
	var decisionRepo *queries.DecisionRepository
	var rateRepo *queries.RateSampleRepository
	var replicaRepo *queries.ReplicaRepository
	if s.db != nil {
		userRepo = queries.NewUserRepository(s.db.DB)
		serviceRepo = queries.NewServiceRepository(s.db.DB)
		decisionRepo = queries.NewDecisionRepository(s.db.DB)
		rateRepo = queries.NewRateSampleRepository(s.db.DB)
		replicaRepo = queries.NewReplicaRepository(s.db.DB)
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(s.db)
	authHandler := handlers.NewAuthHandler(userRepo, s.authService)
	serviceHandler := handlers.NewServiceHandler(serviceRepo, replicaRepo, s.serviceManager)
	requestHandler := handlers.NewRequestHandler(s.serviceManager)
	decisionHandler := handlers.NewDecisionHandler(decisionRepo, s.config.DefaultLimit, s.config.MaxLimit)
	rateHandler := handlers.NewRateHandler(rateRepo, s.config.MaxLimit)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth routes
	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Request ingestion stays open: load balancers report without a user
	// token, shielded by the global rate limit.
	s.router.POST("/services/:name/requests", requestHandler.Report)

	// Protected routes
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		// Services
		protected.GET("/services", serviceHandler.List)
		protected.POST("/services", serviceHandler.Create)
		protected.GET("/services/:name", serviceHandler.Get)
		protected.PUT("/services/:name", serviceHandler.Update)
		protected.DELETE("/services/:name", serviceHandler.Delete)
		protected.GET("/services/:name/status", serviceHandler.GetStatus)
		protected.GET("/services/:name/replicas", serviceHandler.GetReplicas)

		// Decisions and rate history
		protected.GET("/services/:name/decisions", decisionHandler.GetByService)
		protected.GET("/services/:name/rates", rateHandler.GetByService)
		protected.GET("/decisions/recent", decisionHandler.GetRecent)
		protected.GET("/auth/me", authHandler.Me)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	idleTimeout := s.config.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router is exposed for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
