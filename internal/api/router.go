package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/flightdesk/internal/config"
	"github.com/yegors/flightdesk/internal/flights"
	"github.com/yegors/flightdesk/pkg/logger"
)

// Router wires the API handlers, dashboard websocket and static pages
type Router struct {
	handler *Handler
	static  http.Handler
	cfg     *config.Config
	logger  *logger.Logger
}

// NewRouter creates a new router
func NewRouter(handler *Handler, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler: handler,
		static:  NewStaticFileHandler(cfg.Server.StaticFilesDir, log),
		cfg:     cfg,
		logger:  log,
	}
}

// Routes returns the HTTP handler with every route mounted
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(rt.logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(rt.cfg.Server.CORSAllowedOrigins))

	h := rt.handler

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.GetHealth)

		r.Get("/dsr", h.GetRecords(flights.NamespaceStandard))
		r.Get("/dsr/{key}", h.GetRecord(flights.NamespaceStandard))
		r.Get("/edsr", h.GetRecords(flights.NamespaceEvent))
		r.Get("/edsr/{key}", h.GetRecord(flights.NamespaceEvent))

		r.Get("/airport_stats", h.GetOriginStats(flights.NamespaceStandard))
		r.Get("/eairport_stats", h.GetOriginStats(flights.NamespaceEvent))

		r.Get("/atc", h.GetControllers)
		r.Get("/eatc", h.GetEventControllers)
		r.Get("/atis", h.GetATIS)
		r.Get("/eatis", h.GetEventATIS)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(rt.cfg.Auth.Token))
			r.Post("/event/atc", h.PushEventControllers)
			r.Post("/event/atis", h.PushEventATIS)
		})
	})

	r.Get("/ws", h.HandleWebSocket)

	r.Handle("/*", rt.static)
	return r
}
