package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/georgemunganga/product-manager/internal/config"
	"github.com/georgemunganga/product-manager/internal/docstore"
	"github.com/georgemunganga/product-manager/internal/modules/auth"
	"github.com/georgemunganga/product-manager/internal/modules/product"
	"github.com/georgemunganga/product-manager/internal/modules/user"
	"github.com/georgemunganga/product-manager/internal/obs"
)

func main() {
	cfg := config.Load()
	obs.InitLogger(obs.ParseLevel(cfg.LogLevel))
	obs.Logger.Info("client_starting", "docstore", cfg.DocstoreDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Stores ──────────────────────────────────────────────
	var (
		store    docstore.Store
		userRepo user.Repository
		db       *sql.DB
	)
	switch cfg.DocstoreDriver {
	case "postgres":
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			obs.Logger.Error("db_open_error", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			obs.Logger.Error("db_ping_error", "error", err)
			os.Exit(1)
		}
		pg := docstore.NewPostgresStore(db, cfg.DatabaseURL, cfg.ListenerMinReconnect, cfg.ListenerMaxReconnect)
		if err := pg.Migrate(ctx); err != nil {
			obs.Logger.Error("docstore_migrate_error", "error", err)
			os.Exit(1)
		}
		if err := user.Migrate(ctx, db); err != nil {
			obs.Logger.Error("users_migrate_error", "error", err)
			os.Exit(1)
		}
		store = pg
		userRepo = user.NewPostgresRepository(db)
	default:
		store = docstore.NewMemoryStore()
		userRepo = user.NewMemoryRepository()
	}

	// ── Identity ────────────────────────────────────────────
	userService := user.NewService(userRepo, 0)
	identity := auth.NewLocalProvider(userService, []byte(cfg.JWTSecret), cfg.SessionTTL)
	authMachine := auth.NewStateMachine(ctx, identity)

	// ── Products ────────────────────────────────────────────
	productRepo := product.NewRepository(store, cfg.ProductsCollection)
	productMachine := product.NewStateMachine(ctx, productRepo, identity)

	// The product collection follows the session: resubscribe whenever it changes.
	sessions, stopSessions := authMachine.LoggedIn().Watch()
	go func() {
		first := true
		for range sessions {
			if first {
				first = false
				continue
			}
			productMachine.Resubscribe()
		}
	}()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	auth.NewHandler(authMachine).RegisterRoutes(router)
	product.NewHandler(productMachine).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		obs.Logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	// Closing the machines first ends the open event streams.
	stopSessions()
	productMachine.Close()
	authMachine.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("client_stopped")
}
