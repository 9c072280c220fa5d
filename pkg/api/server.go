package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/config"
	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/middleware"
	"github.com/teamace/ballshop/pkg/observability"
	"github.com/teamace/ballshop/pkg/rbac"
	"github.com/teamace/ballshop/pkg/sso"
	"github.com/teamace/ballshop/pkg/store"
	"github.com/teamace/ballshop/pkg/uploads"
)

// maxRequestBody bounds request bodies. Sized for multipart review image
// uploads plus headroom; JSON payloads come nowhere near it.
const maxRequestBody = 12 << 20

// Stores bundles the persistence layer handed to the server.
type Stores struct {
	Users      *store.Users
	Products   *store.Products
	Discounted *store.DiscountedProducts
	Carts      *store.Carts
	Reviews    *store.Reviews
	Orders     *store.Orders
	Cache      *store.ProductCache
}

// Server is the storefront API server.
type Server struct {
	router  *mux.Router
	handler http.Handler

	authHandlers    *AuthHandlers
	productHandlers *ProductHandlers
	adminHandlers   *AdminHandlers
	cartHandlers    *CartHandlers
	reviewHandlers  *ReviewHandlers
	orderHandlers   *OrderHandlers
}

// NewServer wires the handlers and the middleware chain. ssoHandlers,
// images, payments and rateLimiter may be nil when the deployment does not
// configure them.
func NewServer(
	cfg *config.Config,
	stores Stores,
	authSvc *auth.Service,
	filter *middleware.JWTFilter,
	rateLimiter *middleware.LoginRateLimiter,
	ssoHandlers *sso.Handlers,
	images uploads.ObjectStore,
	payments PaymentVerifier,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		router: mux.NewRouter(),
	}

	cookieSecure := cfg.Auth.CookieSecure
	s.authHandlers = NewAuthHandlers(authSvc, stores.Users, cookieSecure, logger, metrics)
	s.productHandlers = NewProductHandlers(stores.Products, stores.Cache)
	s.adminHandlers = NewAdminHandlers(stores.Products, stores.Discounted, stores.Orders, stores.Cache)
	s.cartHandlers = NewCartHandlers(stores.Carts, stores.Products, stores.Users)
	s.reviewHandlers = NewReviewHandlers(stores.Reviews, stores.Products, stores.Users, images, logger)
	s.orderHandlers = NewOrderHandlers(stores.Orders, stores.Products, stores.Carts, stores.Users, payments, logger)

	var rateLimit func(http.Handler) http.Handler
	if rateLimiter != nil {
		rateLimit = rateLimiter.Middleware
	}

	s.authHandlers.RegisterRoutes(s.router, rateLimit)
	s.productHandlers.RegisterRoutes(s.router)
	s.adminHandlers.RegisterRoutes(s.router)
	s.cartHandlers.RegisterRoutes(s.router)
	s.reviewHandlers.RegisterRoutes(s.router)
	s.orderHandlers.RegisterRoutes(s.router)
	if ssoHandlers != nil {
		ssoHandlers.RegisterRoutes(s.router)
	}

	// Outermost first: request ID, access log, panic recovery, CORS,
	// metrics, body cap, then identity resolution and the policy gate.
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.CORSMiddleware(cfg.Server.AllowedOrigins),
	}
	if metrics != nil {
		chain = append(chain, metrics.Middleware)
	}
	chain = append(chain,
		httputil.MaxBytesMiddleware(maxRequestBody),
		filter.Middleware,
		rbac.Gate(rbac.DefaultPolicy()),
	)

	s.handler = httputil.Chain(chain...)(s.router)
	return s
}

// Handler returns the complete middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the bare router, mainly for tests that exercise handlers
// without the middleware chain.
func (s *Server) Router() *mux.Router {
	return s.router
}
