// Package main our entry point.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/johndosdos/chatroom/internal"
	"github.com/johndosdos/chatroom/internal/cache"
	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/johndosdos/chatroom/internal/config"
	"github.com/johndosdos/chatroom/internal/files"
	"github.com/johndosdos/chatroom/internal/handler"
	"github.com/johndosdos/chatroom/internal/metrics"
	ratelimiter "github.com/johndosdos/chatroom/internal/rate_limiter"
	"github.com/johndosdos/chatroom/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}

	cfg := config.Load()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	log.Println("Starting application...")

	// Init DB
	log.Println("Initializing Database connection...")

	if cfg.DBURL == "" {
		log.Fatal("DB_URL environment variable is not set")
	}

	dbConn, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("could not connect to the postgresql database: %v", err)
	}

	if err := store.Migrate(dbConn); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var chatStore chat.Store = store.NewPostgres(dbConn)

	// Init Redis. The profile cache is optional.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		log.Println("Initializing Redis connection...")
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable; running without profile cache",
				"error", err,
				"addr", cfg.RedisAddr)
			rdb.Close()
			rdb = nil
		} else {
			chatStore = cache.NewProfileCache(chatStore, rdb, cfg.ProfileCacheTTL)
		}
	}

	// Init NATS
	log.Println("Initializing NATS connection...")

	if cfg.NATSURL == "" {
		log.Fatal("NATS_URL environment variable is not set")
	}

	conn, err := files.Connect(cfg.NATSURL, cfg.NATSCred, cfg.NATSUser, cfg.NATSPass)
	if err != nil {
		log.Fatal(err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		log.Fatalf("failed to create jetstream instance: %v", err)
	}

	objects := files.NewJetStreamObjectStore(js, cfg.FilesBucket)
	if err := objects.Init(ctx); err != nil {
		log.Fatalf("failed to open files bucket: %v", err)
	}

	hub := chat.NewHub(chatStore, chat.HubConfig{
		HistoryLimit:      cfg.HistoryLimit,
		StoreTimeout:      cfg.StoreTimeout,
		DefaultProfileURL: cfg.DefaultProfileURL,
		TokenSecret:       cfg.UploadTokenSecret,
		TokenTTL:          cfg.UploadTokenTTL,
	})

	uploadLimiter := ratelimiter.NewIPRateLimiter(cfg.UploadRate, cfg.UploadWindow, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	uploadLimiter.TrustProxy = cfg.TrustProxy

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	r.Get("/ws", handler.ServeWs(hub, handler.WsOptions{
		OriginPatterns: cfg.AllowedOrigins,
		ReadLimit:      cfg.MaxMessageSize,
		MessageRate:    cfg.MessageRate,
		MessageWindow:  cfg.MessageWindow,
	}))

	r.With(
		func(next http.Handler) http.Handler { return uploadLimiter.Middleware(next) },
		internal.UploadAuth(hub, cfg.MaxUploadBytes),
	).Post("/upload", handler.ServeUpload(hub, objects, cfg.MaxUploadBytes))

	r.Get("/files/{name}", handler.ServeFile(objects))
	r.Get("/rooms/{room}/messages", handler.ServeRoomMessages(hub))

	pingers := map[string]handler.Pinger{
		"postgres": dbConn,
		"nats":     handler.PingFunc(conn.FlushWithContext),
	}
	if rdb != nil {
		pingers["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	r.Get("/healthz", handler.ServeHealth(pingers))
	r.Handle("/metrics", metrics.Handler())

	server.Handler = r

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	uploadLimiter.Cancel()

	// Drain NATS connection.
	if err := conn.Drain(); err != nil {
		log.Printf("couldn't drain NATS conn: %+v", err)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("couldn't close redis client: %+v", err)
		}
	}

	// Close DB connection.
	dbConn.Close()

	log.Println("Server stopped")
}
