package httpserver

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "marketchat/docs"
	"marketchat/internal/config"
	"marketchat/internal/presence"
	"marketchat/internal/service"
	"marketchat/internal/ws"
)

// Deps are the components the router exposes over HTTP.
type Deps struct {
	Config        *config.Config
	DB            *sql.DB
	Auth          *service.AuthService
	Identities    *service.IdentityService
	Conversations *service.ConversationService
	Catalog       *service.CatalogService
	Relay         *ws.Relay
	Presence      *presence.Directory[*ws.Client]
	Gateway       http.Handler
	Logger        *slog.Logger
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// the socket outlives any request timeout
	if d.Gateway != nil {
		r.Get("/ws", d.Gateway.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"message": d.Config.AppName + " API",
				"version": "1.0.0",
				"docs":    "/docs",
			})
		})
		r.Get("/health", handleHealth(d.DB))

		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/docs/doc.json"),
		))

		r.Route("/api", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", handleRegister(d.Auth))
				r.Post("/login", handleLogin(d.Auth))
			})

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(d.Auth))

				r.Get("/auth/me", handleMe())
				r.Post("/auth/logout", handleLogout())

				r.Route("/users", func(r chi.Router) {
					r.Get("/online", handleListOnlineUsers(d.Presence))
					r.Get("/{userID}", handleGetUser(d.Identities, d.Presence))
				})

				r.Route("/products", func(r chi.Router) {
					r.Post("/", handleCreateProduct(d.Catalog))
					r.Get("/{productID}", handleGetProduct(d.Catalog))
				})

				r.Route("/conversations", func(r chi.Router) {
					r.Post("/", handleCreateConversation(d.Conversations))
					r.Get("/", handleListConversations(d.Conversations))
					r.Get("/{conversationID}", handleGetConversation(d.Conversations))
					r.Delete("/{conversationID}", handleDeleteConversation(d.Conversations))
					r.Get("/{conversationID}/messages", handleListMessages(d.Conversations))
					r.Post("/{conversationID}/messages", handlePostMessage(d.Relay))
					r.Post("/{conversationID}/seen", handleMarkSeen(d.Relay))
				})
			})
		})
	})

	return r
}

func handleHealth(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": "database unreachable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}
