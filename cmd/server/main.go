package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/djassa/djassa-backend/internal/config"
	"github.com/djassa/djassa-backend/internal/database"
	"github.com/djassa/djassa-backend/internal/feed"
	"github.com/djassa/djassa-backend/internal/push"
	postgresrepo "github.com/djassa/djassa-backend/internal/repository/postgres"
	"github.com/djassa/djassa-backend/internal/service"
	"github.com/djassa/djassa-backend/internal/thread"
	"github.com/djassa/djassa-backend/internal/transport/http/handlers"
	"github.com/djassa/djassa-backend/internal/transport/http/middleware"
	"github.com/djassa/djassa-backend/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Realtime feed + push gateway
	broker := feed.NewBroker()
	var pusher push.Sender = push.NoopSender{}
	if cfg.PushEndpoint != "" {
		pusher = push.NewHTTPSender(cfg.PushEndpoint, cfg.PushToken)
	}

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	chatService := service.NewChatService(messageRepo, userRepo, broker, pusher)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// WebSocket: one conversation watcher per connection
	mux.HandleFunc("GET /ws", ws.ServeWS(cfg.JWTSecret, func(viewer uuid.UUID) *thread.Watcher {
		return thread.NewWatcher(chatService, broker, pusher, viewer)
	}))

	// Protected - Messaging
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(chatHandler.ListConversations)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(chatHandler.ListThread)))
	mux.Handle("POST /api/v1/messages", auth(http.HandlerFunc(chatHandler.SendMessage)))
	mux.Handle("POST /api/v1/messages/read", auth(http.HandlerFunc(chatHandler.MarkRead)))
	mux.Handle("GET /api/v1/messages/unread-count", auth(http.HandlerFunc(chatHandler.UnreadCount)))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: middleware.CORS(cfg.CORSOrigin)(mux),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
