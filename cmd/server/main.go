package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"golang.org/x/time/rate"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/catalog"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/config"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/handlers"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/store"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/supplier"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/woocommerce"
)

func main() {
	// Configure slog to output DEBUG level messages
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	if n, err := db.CountUsers(); err == nil && n == 0 {
		slog.Warn("No admin users exist yet. Create one with: cli add-user -username <name> -password <password>")
	}

	// 3. WooCommerce credentials and catalog
	settingsFile := settings.NewFileStore(cfg.SettingsPath)
	initial, err := settings.LoadInitial(settingsFile, cfg.SeedCredentials)
	if err != nil {
		slog.Error("Failed to load WooCommerce settings", "path", cfg.SettingsPath, "error", err)
		os.Exit(1)
	}
	if fields := settings.Overridden(cfg.SeedCredentials); len(fields) > 0 {
		slog.Info("Environment overrides saved WooCommerce settings", "fields", fields)
	}
	manager :=settings.NewManager(settingsFile, func(c settings.Credentials) (catalog.Client, error) {
		client, err := woocommerce.New(woocommerce.Config{
			BaseURL:        c.BaseURL,
			ConsumerKey:    c.ConsumerKey,
			ConsumerSecret: c.ConsumerSecret,
			Timeout:        cfg.UpstreamTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}, initial)
	catalogService := catalog.NewService(manager, supplier.NewMockSource(cfg.SupplierDelay, nil))

	// 4. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 5. Init Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load(handlers.Assets); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// 6. Setup Handlers
	adminHandler := &handlers.AdminHandler{
		Store:        db,
		SessionStore: sessionStore,
		Templates:    templates,
		Catalog:      catalogService,
		Settings:     manager,
	}
	apiHandler := &handlers.APIHandler{
		Catalog:      catalogService,
		Settings:     manager,
		Store:        db,
		SessionStore: sessionStore,
		Tokens:       handlers.NewTokenIssuer(cfg.APITokenKey),
	}

	// Login attempts: bursts of 5, then one every 12 seconds per IP
	loginLimiter := handlers.NewRateLimiter(rate.Every(12*time.Second), 5)
	defer loginLimiter.Close()

	mux := handlers.NewRouter(adminHandler, apiHandler, loginLimiter)

	// 7. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> Bearer bypass -> CSRF -> Mux
	protected := CSRF(mux)
	if !cfg.CookieSecure {
		protected = handlers.PlaintextHTTPMiddleware(protected)
	}
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			handlers.BearerCSRFBypass(protected),
		),
	)

	// 8. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "woocommerce_configured", initial.Complete())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-stop

	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
