package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/backend/internal/cache"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/database"
	"taskboard/backend/internal/handlers"
	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/monitoring"
	"taskboard/backend/internal/repositories"
	"taskboard/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Application holds all application dependencies and state
type Application struct {
	Config  *config.Config
	DB      *database.DatabasePool
	Redis   *cache.RedisCache
	Lists   *cache.BoardListCache
	Monitor *monitoring.Monitor
	Router  *gin.Engine
	Server  *http.Server

	Tokens      *services.TokenIssuer
	Boards      *services.BoardService
	SharedUsers *services.SharedUserService
	Tasks       *services.TaskService
	Accounts    *services.AccountService

	stopTracing func(context.Context) error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	configureLogging(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	app.setupRoutes()
	app.startServer()
}

func configureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func initializeApplication(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config:  cfg,
		Monitor: monitoring.NewMonitor(),
	}

	log.WithFields(log.Fields{
		"environment": cfg.Server.Environment,
		"driver":      cfg.Database.Driver,
	}).Info("initializing taskboard backend")

	if cfg.Tracing.Enabled {
		app.stopTracing = monitoring.InstallTracing(cfg.Tracing.ServiceName)
		log.Info("tracing enabled")
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        database.DefaultPoolConfig().LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	app.DB = pool

	migrationConfig := repositories.DefaultMigrationConfig()
	migrationConfig.DBName = cfg.Database.Name
	if err := repositories.Migrate(pool.DB, migrationConfig); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	app.Monitor.RegisterHealthCheck("database", func(context.Context) error { return pool.Health() })
	app.Monitor.RegisterStats("database", func() interface{} { return pool.Stats() })

	if cfg.Redis.Enabled {
		app.connectRedis()
	}

	app.buildServices(repositories.NewStore(pool.DB))
	log.Info("all services initialized")

	return app, nil
}

// connectRedis enables the board-list cache when Redis answers. The API works
// without it.
func (app *Application) connectRedis() {
	cfg := app.Config
	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisCache.Health(ctx); err != nil {
		log.WithError(err).Warn("redis unavailable, board lists will not be cached")
		redisCache.Close()
		return
	}

	app.Redis = redisCache
	app.Lists = cache.NewBoardListCache(redisCache, nil, cfg.Redis.BoardListTTL)
	app.Monitor.RegisterHealthCheck("redis", redisCache.Health)
	app.Monitor.RegisterStats("cache", func() interface{} { return app.Lists.Stats() })
	log.WithField("addr", cfg.GetRedisAddr()).Info("redis connected")
}

func (app *Application) buildServices(store *repositories.Store) {
	var lists services.BoardListCache
	if app.Lists != nil {
		lists = app.Lists
	}

	app.Tokens = services.NewTokenIssuer(app.Config.Auth.JWTSecret, app.Config.Auth.Issuer, app.Config.Auth.AccessTokenTTL)
	app.Boards = services.NewBoardService(store, lists)
	app.SharedUsers = services.NewSharedUserService(store, lists)
	app.Tasks = services.NewTaskService(store)
	app.Accounts = services.NewAccountService(store, app.Tokens, lists, app.Config.Auth.BCryptCost)
}

func (app *Application) setupRoutes() {
	r := gin.New()

	r.Use(middleware.RequestLogger())
	r.Use(middleware.RecoveryWithLog())
	r.Use(app.Monitor.Middleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", app.Monitor.HealthHandler())
	r.GET("/ready", app.Monitor.ReadinessHandler())
	r.GET("/live", app.Monitor.LivenessHandler())
	r.GET("/metrics", app.Monitor.MetricsHandler())

	api := r.Group("/api")
	authenticate := middleware.Authenticate(app.Tokens)

	accountHandler := handlers.NewAccountHandler(app.Accounts)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", accountHandler.Register)
		authRoutes.POST("/login", accountHandler.Login)
		authRoutes.GET("/user", authenticate, accountHandler.GetUser)
		authRoutes.DELETE("/user", authenticate, accountHandler.DeleteUser)
	}

	protected := api.Group("")
	protected.Use(authenticate)
	{
		boardHandler := handlers.NewBoardHandler(app.Boards)
		protected.POST("/board", boardHandler.CreateBoard)
		protected.GET("/board/:ref", boardHandler.GetBoard)
		protected.PUT("/board/:ref", boardHandler.UpdateBoard)
		protected.DELETE("/board/:ref", boardHandler.DeleteBoard)
		protected.GET("/boards", boardHandler.ListBoards)

		sharedUserHandler := handlers.NewSharedUserHandler(app.SharedUsers)
		protected.POST("/shareduser", sharedUserHandler.CreateSharedUser)
		protected.DELETE("/shareduser", sharedUserHandler.DeleteSharedUser)

		taskHandler := handlers.NewTaskHandler(app.Tasks)
		protected.POST("/task", taskHandler.CreateTask)
		protected.GET("/task/:id", taskHandler.GetTask)
		protected.PUT("/task/:id", taskHandler.UpdateTask)
		protected.DELETE("/task/:id", taskHandler.DeleteTask)
	}

	app.Router = r
}

func (app *Application) startServer() {
	addr := app.Config.GetServerAddr()

	app.Server = &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("server forced to shutdown")
		}

		app.cleanup(ctx)
		log.Info("server stopped gracefully")
	}()

	log.WithField("addr", addr).Info("server starting")

	if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed to start: %v", err)
	}
	<-done
}

func (app *Application) cleanup(ctx context.Context) {
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			log.WithError(err).Warn("error closing redis")
		}
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			log.WithError(err).Warn("error closing database")
		}
	}

	if app.stopTracing != nil {
		if err := app.stopTracing(ctx); err != nil {
			log.WithError(err).Warn("error flushing traces")
		}
	}
}
