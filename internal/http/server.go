package http

import (
	"fmt"
	"net"
	"net/http"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/r3labs/sse/v2"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/config"
	"github.com/wesavefood/wesavefood/internal/database"
	"github.com/wesavefood/wesavefood/internal/logger"
	userservice "github.com/wesavefood/wesavefood/internal/user"
)

type Server struct {
	log zerolog.Logger
	sse *sse.Server
	bus EventBus.Bus

	config      *config.AppConfig
	cookieStore *sessions.CookieStore

	version string
	commit  string
	date    string

	store  *database.Store
	seeder *database.Seeder
	pinger Pinger

	authService         authService
	notificationService notificationService
	updateService       updateService
	userService         userservice.Service
	storeService        storeService
	productService      productService
}

func NewServer(
	log logger.Logger,
	config *config.AppConfig,
	sse *sse.Server,
	bus EventBus.Bus,
	store *database.Store,
	seeder *database.Seeder,
	pinger Pinger,
	version string,
	commit string,
	date string,
	authService authService,
	notificationSvc notificationService,
	updateSvc updateService,
	userSvc userservice.Service,
	storeSvc storeService,
	productSvc productService,
) Server {
	return Server{
		log:     log.With().Str("module", "http").Logger(),
		config:  config,
		sse:     sse,
		bus:     bus,
		store:   store,
		seeder:  seeder,
		pinger:  pinger,
		version: version,
		commit:  commit,
		date:    date,

		cookieStore: sessions.NewCookieStore([]byte(config.Config.Auth.SessionSecret)),

		authService:         authService,
		notificationService: notificationSvc,
		updateService:       updateSvc,
		userService:         userSvc,
		storeService:        storeSvc,
		productService:      productSvc,
	}
}

func (s Server) Open() error {
	addr := fmt.Sprintf("%v:%v", s.config.Config.Server.Host, s.config.Config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := http.Server{
		Handler: s.Handler(),
	}

	s.log.Info().Msgf("Starting server. Listening on %s", listener.Addr().String())

	return server.Serve(listener)
}

func (s Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(&s.log))

	c := cors.New(cors.Options{
		AllowCredentials:   true,
		AllowedMethods:     []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowOriginFunc:    func(origin string) bool { return true },
		OptionsPassthrough: true,
	})

	r.Use(c.Handler)

	encoder := encoder{}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", newAuthHandler(encoder, s.log, s.config.Config, s.cookieStore, s.authService).Routes)
		r.Route("/healthz", newHealthHandler(encoder, s.pinger).Routes)

		// Public catalog browsing; mutations inside these handlers are
		// still reachable without a token so store owners can use the
		// same surface. Read paths dominate.
		r.Route("/stores", newStoreHandler(encoder, s.log, s.storeService).Routes)
		r.Route("/products", newProductHandler(encoder, s.log, s.productService, s.bus).Routes)

		// Authenticated routes group
		authedRouter := r.Group(nil)
		authedRouter.Use(s.AuthenticateAPIToken)

		authedRouter.Route("/users", newUserHandler(encoder, s.log, s.userService).Routes)
		authedRouter.Route("/notification", newNotificationHandler(encoder, s.notificationService).Routes)
		authedRouter.Route("/updates", newUpdateHandler(encoder, s.updateService).Routes)
		authedRouter.Route("/admin", newAdminHandler(encoder, s.log, s.seeder, s.store).Routes)

		authedRouter.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			// inject CORS headers to bypass checks
			s.sse.Headers = map[string]string{
				"Content-Type":      "text/event-stream",
				"Cache-Control":     "no-cache",
				"Connection":        "keep-alive",
				"X-Accel-Buffering": "no",
			}
			s.sse.ServeHTTP(w, r)
		})
	})

	return r
}
