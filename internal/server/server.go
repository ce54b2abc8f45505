package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"demeter/internal/attribute"
	"demeter/internal/auth"
	"demeter/internal/storage/sqlite"
)

// Options tunes the HTTP layer.
type Options struct {
	StaticDir         string
	CORSOrigins       []string
	RequestTimeout    time.Duration
	AuthRatePerMinute int
	SecureCookies     bool
	Policy            attribute.Policy
	// Registry receives the HTTP metrics; nil creates a private one.
	Registry *prometheus.Registry
}

// Server provides HTTP handlers for the project scheduling backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	tokens    *auth.Manager
	logger    *slog.Logger
	metrics   *metrics
	limiter   *ipLimiter
	opts      Options
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, tokens *auth.Manager, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = attribute.PolicyStrict
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.AuthRatePerMinute <= 0 {
		opts.AuthRatePerMinute = 20
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/metrics"))

	srv := &Server{
		engine:    router,
		store:     store,
		tokens:    tokens,
		logger:    logger,
		metrics:   newMetrics(opts.Registry),
		limiter:   newIPLimiter(opts.AuthRatePerMinute, limiterIdleTTL),
		opts:      opts,
		staticDir: opts.StaticDir,
	}

	router.Use(srv.metrics.middleware())
	router.Use(corsMiddleware(opts.CORSOrigins))
	if opts.RequestTimeout > 0 {
		router.Use(timeoutMiddleware(opts.RequestTimeout))
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", s.metrics.handler())

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authGroup := api.Group("/auth")
		{
			limited := authGroup.Group("", s.rateLimit())
			limited.POST("/register", s.handleRegister)
			limited.POST("/login", s.handleLogin)
			authGroup.POST("/refresh", s.handleRefresh)
			authGroup.POST("/logout", s.handleLogout)
			authGroup.GET("/session", s.authRequired(), s.handleSession)
		}

		protected := api.Group("", s.authRequired())

		users := protected.Group("/users")
		{
			users.GET("", s.handleListUsers)
			users.GET("/all", s.handleAllUsers)
			users.GET("/username/:username", s.handleGetUserByUsername)
			users.GET("/:id", s.handleGetUser)
			users.POST("", s.handleCreateUser)
			users.POST("/batch-delete", s.handleBatchDeleteUsers)
			users.PUT("/:id", s.handleUpdateUser)
			users.PUT("/:id/status", s.handleSetUserStatus)
			users.DELETE("/:id", s.handleDeleteUser)
		}

		s.departments().register(protected.Group("/departments"))
		s.teams().register(protected.Group("/teams"))

		projects := protected.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.GET("/all", s.handleAllProjects)
			projects.GET("/my", s.handleListMyProjects)
			projects.GET("/my/all", s.handleAllMyProjects)
			projects.GET("/name/:name", s.handleGetProjectByName)
			projects.GET("/:projectId", s.handleGetProject)
			projects.POST("", s.handleCreateProject)
			projects.POST("/batch-delete", s.handleBatchDeleteProjects)
			projects.PUT("/:projectId", s.handleUpdateProject)
			projects.DELETE("/:projectId", s.handleDeleteProject)
			projects.GET("/:projectId/schedule", s.handleSchedule)

			configs := projects.Group("/:projectId/task-attribute-configs")
			{
				configs.GET("", s.handleListAttributeConfigs)
				configs.GET("/:configId", s.handleGetAttributeConfig)
				configs.POST("", s.handleCreateAttributeConfig)
				configs.POST("/batch-delete", s.handleBatchDeleteAttributeConfigs)
				configs.PUT("/:configId", s.handleUpdateAttributeConfig)
				configs.DELETE("/:configId", s.handleDeleteAttributeConfig)
			}

			tasks := projects.Group("/:projectId/tasks")
			{
				tasks.GET("", s.handleListTasks)
				tasks.GET("/all", s.handleAllTasks)
				tasks.GET("/:taskId", s.handleGetTask)
				tasks.POST("", s.handleCreateTask)
				tasks.POST("/batch-delete", s.handleBatchDeleteTasks)
				tasks.POST("/reorder", s.handleReorderTasks)
				tasks.POST("/:taskId/move", s.handleMoveTask)
				tasks.PUT("/:taskId", s.handleUpdateTask)
				tasks.DELETE("/:taskId", s.handleDeleteTask)
			}
		}

		holidays := protected.Group("/holidays")
		{
			holidays.GET("", s.handleListHolidays)
			holidays.GET("/all", s.handleAllHolidays)
			holidays.GET("/:id", s.handleGetHoliday)
			holidays.POST("", s.handleCreateHoliday)
			holidays.POST("/batch-create", s.handleBatchCreateHolidays)
			holidays.POST("/batch-update", s.handleBatchUpdateHolidays)
			holidays.POST("/batch-delete", s.handleBatchDeleteHolidays)
			holidays.PUT("/:id", s.handleUpdateHoliday)
			holidays.DELETE("/:id", s.handleDeleteHoliday)
		}
	}

	s.mountStatic()
}

// handleHealth reports readiness, including the database connection.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, http.StatusServiceUnavailable, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "ok"})
}
