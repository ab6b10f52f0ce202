package rest

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"bcp-export/internal/config"
	"bcp-export/internal/domain"
	"bcp-export/internal/service"
	"bcp-export/internal/transport/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type FlowStarter interface {
	StartLeads(ctx context.Context, req service.ClientRequest) (string, error)
	StartEfforts(ctx context.Context, req service.ClientRequest) (string, error)
	StartAmeyo(ctx context.Context, req service.AmeyoRequest) (string, error)
}

type RunLister interface {
	List(ctx context.Context, user string) ([]service.Run, error)
	Get(ctx context.Context, id, user string) (*service.Run, error)
}

type CatalogService interface {
	Environments() []config.Environment
	Clients(ctx context.Context, env string) ([]domain.Client, error)
	Databases(ctx context.Context) ([]string, error)
}

// Authenticator runs the Lark sign-in. clients.LarkClient satisfies it.
type Authenticator interface {
	AuthorizeURL() string
	Exchange(ctx context.Context, code string) (token, email string, err error)
}

// SessionStore is the active-user table. session.Store satisfies it.
type SessionStore interface {
	auth.Sessions
	CanLogin(ctx context.Context) (bool, error)
	Add(ctx context.Context, token, email string) error
	Remove(ctx context.Context, token string) error
}

// FileStore resolves a stored archive name to a local path.
// clients.StorageClient satisfies it.
type FileStore interface {
	Path(stored string) (string, error)
}

type WebSocketHandler func(w http.ResponseWriter, r *http.Request, user string)

type Options struct {
	CookieName   string
	CookieMaxAge time.Duration
	SecureCookie bool
	EmailPattern *regexp.Regexp
}

type Handler struct {
	flows    FlowStarter
	runs     RunLister
	catalog  CatalogService
	lark     Authenticator
	sessions SessionStore
	files    FileStore
	ws       WebSocketHandler
	opts     Options
}

func NewHandler(
	flows FlowStarter,
	runs RunLister,
	catalog CatalogService,
	lark Authenticator,
	sessions SessionStore,
	files FileStore,
	ws WebSocketHandler,
	opts Options,
) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = auth.DefaultCookieName
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = 30 * time.Minute
	}
	return &Handler{
		flows:    flows,
		runs:     runs,
		catalog:  catalog,
		lark:     lark,
		sessions: sessions,
		files:    files,
		ws:       ws,
		opts:     opts,
	}
}

// InitRouter mounts the public routes (health, sign-in, file downloads) and
// the session-protected page, API and websocket.
func (h *Handler) InitRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.login)
		r.Get("/callback", h.callback)
		r.Post("/logout", h.logout)
	})

	r.Get("/files/{file}", h.downloadFile)

	r.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(h.sessions, h.opts.CookieName,
			http.RedirectHandler("/auth/login", http.StatusFound)))
		r.Get("/", h.index)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(h.sessions, h.opts.CookieName,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ErrorUnauthorized(w, "Unauthorized")
			})))

		r.Get("/ws", h.websocket)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/environments", h.listEnvironments)
			r.Get("/environments/{env}/clients", h.listClients)
			r.Get("/cms-databases", h.listDatabases)

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", h.listRuns)
				r.Get("/{run_id}", h.getRun)
				r.Post("/leads", h.startLeads)
				r.Post("/efforts", h.startEfforts)
				r.Post("/ameyo", h.startAmeyo)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	Success(w, "ok", nil)
}

func (h *Handler) websocket(w http.ResponseWriter, r *http.Request) {
	email, err := auth.GetUserEmail(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}
	if h.ws == nil {
		ErrorNotFound(w, "websocket not available")
		return
	}
	h.ws(w, r, email)
}
