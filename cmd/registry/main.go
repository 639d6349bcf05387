package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	v1 "ctn_registry/api/v1"
	"ctn_registry/internal/auth"
	"ctn_registry/internal/cache"
	"ctn_registry/internal/config"
	"ctn_registry/internal/db"
	"ctn_registry/internal/endpoint"
	"ctn_registry/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("✓ Configuration loaded")

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	rootLogger := logrus.NewEntry(logger)

	// 2. Initialize MySQL
	if err := db.InitMySQL(cfg.MySQL.DSN); err != nil {
		log.Fatalf("Failed to initialize MySQL: %v", err)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(db.GetDB()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	if err := db.SeedAdmin(db.GetDB(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	// 3. Initialize Redis
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer cache.Close()

	// 4. Initialize JWT
	auth.InitJWT(cfg.JWT.Secret)

	// 5. Initialize realtime feed
	if err := ws.InitServer(); err != nil {
		log.Fatalf("Failed to initialize websocket server: %v", err)
	}

	// 6. Start background workers
	if cfg.ExpiryWorker.Enabled {
		expiryWorker := endpoint.NewExpiryWorker(db.GetDB(), rootLogger, cfg.ExpiryWorker.IntervalSec)
		expiryWorker.Start()
		defer expiryWorker.Stop()
	}

	// 7. Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// Socket.IO endpoint (JWT-gated handshake)
	r.Any("/socket.io/*any", gin.WrapH(ws.WrapWithAuth(ws.Server)))

	// Setup API v1 routes
	v1.SetupRouter(r, db.GetDB(), cfg, rootLogger)

	log.Printf("✓ Server starting on %s", cfg.HTTPAddr)

	// Shut down on SIGINT/SIGTERM so deferred cleanup (pool drain) runs
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		cache.Close()
		db.Close()
		os.Exit(0)
	}()

	// Start server
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
