package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iamasit07/realtime-chat/internal/config"
	"github.com/iamasit07/realtime-chat/internal/repository/memory"
	"github.com/iamasit07/realtime-chat/internal/repository/postgres"
	"github.com/iamasit07/realtime-chat/internal/repository/redis"
	"github.com/iamasit07/realtime-chat/internal/service/chat"
	"github.com/iamasit07/realtime-chat/internal/service/cleanup"
	"github.com/iamasit07/realtime-chat/internal/service/directory"
	"github.com/iamasit07/realtime-chat/internal/service/session"
	transportHttp "github.com/iamasit07/realtime-chat/internal/transport/http"
	"github.com/iamasit07/realtime-chat/internal/transport/websocket"
	"github.com/iamasit07/realtime-chat/pkg/auth"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// store is everything the services need from persistence; both the Postgres
// repositories and the in-memory store provide it.
type store interface {
	session.UserRepository
	chat.MessageStore
	cleanup.TokenReaper
}

type postgresStore struct {
	*postgres.UserRepo
	*postgres.MessageRepo
}

func main() {
	flagSet := pflag.NewFlagSet("chat-api", pflag.ContinueOnError)
	port := flagSet.String("port", "", "port to listen on (overrides PORT)")
	runMigrations := flagSet.Bool("migrate", true, "apply database migrations on startup")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	// 1. Persistence Layer
	var repo store
	if cfg.DatabaseURL != "" {
		if *runMigrations {
			log.Println("Running database migrations...")
			if err := postgres.RunMigrations(cfg.DatabaseURL, "up"); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			log.Println("Database migration completed successfully")
		}

		var db *sql.DB
		db, err = postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.ConnMaxLifetime())
		if err != nil {
			log.Fatalf("Database unreachable: %v", err)
		}
		defer db.Close()
		repo = postgresStore{postgres.NewUserRepo(db), postgres.NewMessageRepo(db)}
	} else {
		log.Println("[DB] DATABASE_URL not set, using in-memory store (messages are lost on restart)")
		repo = memory.NewStore()
	}

	// 2. Optional Redis cache for the user directory
	var cache directory.CacheRepository
	if cfg.RedisEnabled {
		client, err := redis.Connect(context.Background(), cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.Printf("Failed to initialize Redis: %v", err)
		}
		if client != nil {
			redisCache := redis.NewRedisCache(client)
			defer redisCache.Close()
			cache = redisCache
		}
	}

	// 3. Services
	tokens, err := auth.NewTokenService(cfg.SecretKey, cfg.Algorithm, cfg.AccessTTL())
	if err != nil {
		log.Fatalf("Token service: %v", err)
	}
	authService := session.NewAuthService(repo, tokens, cfg.BcryptCost)
	users := directory.NewService(repo, cache, cfg.UserCacheTTL)
	registry := websocket.NewRegistry(cfg.WSWriteTimeout)
	router := chat.NewRouter(registry, users, repo)
	history := chat.NewHistory(repo, cfg.HistoryLimit)

	// 4. Background Workers
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := cleanup.NewWorker(repo, cfg.CleanupInterval).Start(workerCtx)

	// 5. HTTP + WebSocket
	secureCookies := cfg.IsProduction()
	wsHandler := websocket.NewHandler(registry, router, authService, cfg.AllowedOrigins())
	engine := transportHttp.SetupRoutes(transportHttp.RouterDeps{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.AllowedOrigins(),
		Authenticator:  authService,
		Auth:           transportHttp.NewAuthHandler(authService, secureCookies),
		OAuth:          transportHttp.NewOAuthHandler(authService, cfg.GoogleOAuthConfig(), secureCookies),
		Chat:           transportHttp.NewChatHandler(registry, history),
		WebSocket:      wsHandler.HandleWebSocket,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (api prefix %s)", cfg.Port, cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	registry.CloseAll()
	stopWorker()
	<-workerDone

	log.Println("Server exited gracefully")
}
