// @title           Serwer Kart API
// @version         1.0
// @description     Card collection service: accounts, daily tokens, catalog draws and per-user collections.
// @host            localhost:8080
// @schemes         http https
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"serwer-kart/internal/account"
	"serwer-kart/internal/api"
	"serwer-kart/internal/cache"
	"serwer-kart/internal/catalog"
	"serwer-kart/internal/config"
	"serwer-kart/internal/database"
	"serwer-kart/internal/email"
	"serwer-kart/internal/logging"
	"serwer-kart/internal/websocket"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	_ "serwer-kart/docs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("serwer zakończył się błędem", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("Pomyślnie połączono z bazą danych")

	if err := database.Migrate(ctx, dbpool); err != nil {
		return err
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool, wsHub)

	var accountOpts []account.Option
	mailer := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, cfg.Email.BaseURL)
	if mailer.Configured() {
		accountOpts = append(accountOpts, account.WithNotifier(mailer))
		slog.Info("tokeny resetu hasła będą wysyłane mailem", "from", cfg.Email.From)
	} else {
		slog.Warn("brak konfiguracji poczty, tokeny resetu hasła trafiają do odpowiedzi API")
	}

	accounts := account.NewService(store, account.Config{
		JWTSecret:     cfg.JWT.Secret,
		TokenTTL:      cfg.JWT.TTL,
		WelcomeEmail:  cfg.Auth.WelcomeEmail,
		ResetTTL:      cfg.Auth.ResetTTL,
		ClaimGrant:    cfg.Auth.ClaimGrant,
		ClaimCooldown: cfg.Auth.ClaimCooldown,
	}, accountOpts...)

	catalogOpts := []catalog.Option{}
	var serverOpts []api.ServerOption
	if cfg.Redis.Addr != "" {
		pageCache, err := cache.New(cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer pageCache.Close()
		catalogOpts = append(catalogOpts, catalog.WithCache(pageCache))
		serverOpts = append(serverOpts, api.WithCache(pageCache))
		slog.Info("cache katalogu włączony", "addr", cfg.Redis.Addr, "ttl", cfg.Catalog.CacheTTL)
	}

	cardCatalog := catalog.NewClient(catalog.Config{
		BaseURL:  cfg.Catalog.BaseURL,
		APIKey:   cfg.Catalog.APIKey,
		PageSize: cfg.Catalog.PageSize,
		Timeout:  cfg.Catalog.Timeout,
		CacheTTL: cfg.Catalog.CacheTTL,
	}, catalogOpts...)

	server := api.NewServer(cfg, store, accounts, cardCatalog, wsHub, serverOpts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Uruchamianie serwera", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Zamykanie serwera")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
