package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tutoring/internal/config"
	"tutoring/internal/handler"
	"tutoring/internal/httpmiddleware"
	"tutoring/internal/institute"
	"tutoring/internal/queue"
	"tutoring/internal/store"
	"tutoring/internal/worker"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repo institute.Repository
		db   *store.DB
	)
	switch cfg.StoreBackend {
	case "memory":
		log.Println("using in-memory store; data is lost on restart")
		repo = institute.NewMemoryRepository()
	default:
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		repo = institute.NewPostgresRepository(db.Client)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var cache institute.Cache = redisClient
	if !redisClient.Healthy(ctx) {
		log.Printf("warning: redis not reachable at %s, read cache disabled", cfg.RedisAddr)
		cache = institute.NopCache{}
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(256)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	svc := institute.NewService(repo, cache, q, cfg.CacheTTL)

	// an in-memory queue is only visible to this process, so drain it here
	if cfg.QueueBackend == "memory" {
		go func() {
			if err := worker.New(svc, cfg.NoticeSweepInterval).Run(ctx, q); err != nil {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
	}

	if cfg.AdminPassword != "" {
		admin, created, err := svc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			log.Printf("created admin account %s", admin.Email)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db == nil || db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy, "store": cfg.StoreBackend})
	})

	handler.New(svc, handler.Options{
		SigningKey: cfg.JWTSigningKey,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
	}).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}
