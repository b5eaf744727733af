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

	"collab-canvas/internal/api"
	"collab-canvas/internal/config"
	"collab-canvas/internal/db"
	"collab-canvas/internal/repository"
	"collab-canvas/internal/services/coordinator"
	"collab-canvas/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting Collab Canvas coordination service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Initialize Jaeger tracing first so all operations are traced
	jaegerShutdown, err := telemetry.InitJaeger("collab-canvas", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	// Initialize the durable snapshot store. A coordinator's cold start
	// reads exactly one blob from here; every mutation writes one back.
	var store repository.SnapshotStore
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		store = repository.NewRedisSnapshotStore(client)
		log.Println("✓ Redis snapshot store initialized")

	default:
		database, err := db.NewGorm(cfg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer database.Close()
		store = repository.NewSnapshotRepository(database.DB)
	}

	// Initialize the coordinator hub: one live instance per dashboard,
	// created lazily, evicted when idle.
	hub := coordinator.NewHub(store, cfg.RoomIdleTimeout, cfg.FaultLogWindow)
	hub.Start()

	// Initialize WebSocket handler for persistent client connections
	wsHandler := coordinator.NewWebSocketHandler(hub)

	// Initialize control-surface handlers and routes
	handler := api.NewHandler(hub, wsHandler)
	router := api.SetupRoutes(handler)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 Control surface:")
		log.Printf("   POST   /api/dashboards/:id/init            - Seed room state")
		log.Printf("   GET    /api/dashboards/:id/state           - Full snapshot")
		log.Printf("   PUT    /api/dashboards/:id/items           - Put item")
		log.Printf("   DELETE /api/dashboards/:id/items/:itemId   - Delete item")
		log.Printf("   PUT    /api/dashboards/:id/sessions        - Put session")
		log.Printf("   PUT    /api/dashboards/:id/edges           - Put edge")
		log.Printf("   POST   /api/dashboards/:id/handoff         - Browser handoff")
		log.Printf("   POST   /api/dashboards/:id/commands        - Broadcast UI command")
		log.Printf("   WS     /ws/dashboard/:id?user_id=...       - Client connection")
		log.Println()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Tear down every coordinator and its connections. The durable store
	// is authoritative; nothing in memory needs saving beyond the last
	// successful persist.
	hub.Shutdown()

	log.Println("✓ Server shutdown complete")
}
