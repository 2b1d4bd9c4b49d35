package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/favorites"
	"github.com/avstrong/stays/internal/identity"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/review"
)

var ErrPanic = errors.New("panic recovered")

type Server struct {
	srv       *http.Server
	router    *http.ServeMux
	l         *logger.Logger
	conf      Conf
	bManager  *booking.Manager
	catalog   *catalog.Catalog
	favorites *favorites.Store
	reviews   *review.Service
	verifier  *identity.Verifier
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
}

// Deps are the services behind the handlers. A nil Verifier disables sign-in:
// every request is a guest and gated routes are open.
type Deps struct {
	Bookings  *booking.Manager
	Catalog   *catalog.Catalog
	Favorites *favorites.Store
	Reviews   *review.Service
	Verifier  *identity.Verifier
}

func New(ctx context.Context, conf Conf, deps Deps) (*Server, error) {
	mux := http.NewServeMux()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           mux,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:       srv,
		router:    mux,
		l:         conf.L,
		conf:      conf,
		bManager:  deps.Bookings,
		catalog:   deps.Catalog,
		favorites: deps.Favorites,
		reviews:   deps.Reviews,
		verifier:  deps.Verifier,
	}

	server.addRoutes(mux)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}
