package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"marketchat/internal/cache"
	"marketchat/internal/httpserver"
	"marketchat/internal/presence"
	"marketchat/internal/security"
	"marketchat/internal/service"
	"marketchat/internal/store"
	"marketchat/internal/ws"
)

// identityCacheSize bounds the in-process identity cache.
const identityCacheSize = 10000

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and WebSocket gateway",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply the schema on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := store.Open(cfg, !skipMigrate)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repos.Close()

	identityCache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer identityCache.Close()

	tokens := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL())
	hasher := security.NewPasswordHasher(0)

	authSvc := service.NewAuthService(repos.Users, tokens, hasher, logger)
	identities := service.NewIdentityService(repos.Users, identityCache, cfg.IdentityCacheTTL, logger)
	convSvc := service.NewConversationService(repos.Conversations, repos.Messages, repos.Products, identities, logger,
		service.ConversationServiceOptions{
			MaxMessageLength: cfg.MaxMessageLength,
			PageSize:         cfg.MessagePageSize,
		})
	catalog := service.NewCatalogService(repos.Products)

	hub := ws.NewHub(logger)
	dir := presence.NewDirectory[*ws.Client]()
	relay := ws.NewRelay(hub, dir, convSvc, logger)
	gateway := ws.NewGateway(hub, dir, relay, authSvc, cfg.CORSOrigins, logger)

	router := httpserver.NewRouter(httpserver.Deps{
		Config:        cfg,
		DB:            repos.DB,
		Auth:          authSvc,
		Identities:    identities,
		Conversations: convSvc,
		Catalog:       catalog,
		Relay:         relay,
		Presence:      dir,
		Gateway:       gateway,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr(), "driver", cfg.DBDriver, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// hijacked sockets are not tracked by Shutdown
	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	return nil
}

// openCache picks Valkey when an address is configured and falls back to an
// in-process cache otherwise.
func openCache(ctx context.Context) (cache.Cache, error) {
	if cfg.ValkeyAddr == "" {
		return cache.NewMemory(identityCacheSize, cfg.IdentityCacheTTL), nil
	}
	c, err := cache.NewValkey(ctx, cfg.ValkeyAddr)
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", cfg.ValkeyAddr, err)
	}
	logger.Info("identity cache enabled", "backend", "valkey", "addr", cfg.ValkeyAddr)
	return c, nil
}
