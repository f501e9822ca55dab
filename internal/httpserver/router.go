package httpserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	cartsvc "lean-commerce/internal/service/cart"
	customersvc "lean-commerce/internal/service/customer"
	ordersvc "lean-commerce/internal/service/order"
	productsvc "lean-commerce/internal/service/product"
	"lean-commerce/internal/telemetry"
)

type cartService interface {
	Get(ctx context.Context, id domain.Identity) (*domain.Cart, error)
	AddProduct(ctx context.Context, id domain.Identity, in cartsvc.AddInput) (*domain.Cart, error)
	AddMany(ctx context.Context, id domain.Identity, entries []cartops.BulkEntry) (*domain.Cart, error)
	RemoveItem(ctx context.Context, id domain.Identity, key string) (*domain.Cart, error)
	ApplyCoupon(ctx context.Context, id domain.Identity, code string) (*domain.Cart, error)
	Clear(ctx context.Context, id domain.Identity) (*domain.Cart, error)
}

type orderService interface {
	PlaceOrder(ctx context.Context, id domain.Identity, in ordersvc.PlaceInput) (*domain.Order, error)
	UserOrders(ctx context.Context, id domain.Identity) ([]domain.Order, error)
}

type checkoutService interface {
	Checkout(ctx context.Context, id domain.Identity, orderID int64) (*domain.PaymentResult, error)
}

type productService interface {
	List(ctx context.Context, in productsvc.ListInput) ([]domain.Product, error)
}

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, string, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, error)
}

type sessionService interface {
	Start(ctx context.Context, id string) (*domain.Session, bool, error)
	Login(ctx context.Context, id string, customerID int64) error
	Logout(ctx context.Context, id string) error
	TTL() time.Duration
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the router dispatches to. DB, Metrics and Gatherer
// are optional.
type Deps struct {
	Carts     cartService
	Orders    orderService
	Checkout  checkoutService
	Products  productService
	Customers customerService
	Sessions  sessionService
	DB        pinger
	Metrics   *telemetry.HTTPMetrics
	Gatherer  prometheus.Gatherer
}

type server struct {
	logger   *zap.Logger
	validate *validator.Validate
	sessions sessionService
	cookie   string
	secure   bool
}

// buildRouter wires routes for the API.
func buildRouter(opts Options, logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Carts == nil || deps.Orders == nil || deps.Checkout == nil ||
		deps.Products == nil || deps.Customers == nil || deps.Sessions == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}
	cookie := strings.TrimSpace(opts.SessionCookie)
	if cookie == "" {
		cookie = "ln_session"
	}
	s := &server{
		logger:   logger,
		validate: validator.New(),
		sessions: deps.Sessions,
		cookie:   cookie,
		secure:   opts.SecureCookie,
	}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog(logger), corsMiddleware(opts.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(telemetry.Handler(deps.Gatherer)))
	}

	api := router.Group(normalizePrefix(opts.APIPrefix))
	api.Use(s.sessionMiddleware())

	endpoints := []endpoint{
		&cartEndpoint{carts: deps.Carts},
		&cartMultipleEndpoint{carts: deps.Carts},
		&emptyCartEndpoint{carts: deps.Carts},
		&couponEndpoint{carts: deps.Carts},
		&checkoutEndpoint{checkout: deps.Checkout},
		&orderEndpoint{orders: deps.Orders},
		&productsEndpoint{products: deps.Products},
		&customersEndpoint{customers: deps.Customers},
		&loginEndpoint{customers: deps.Customers, sessions: deps.Sessions},
		&logoutEndpoint{sessions: deps.Sessions},
	}
	for _, ep := range endpoints {
		s.register(api, ep)
	}
	return router, nil
}

func normalizePrefix(prefix string) string {
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	return prefix
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        10 * time.Minute,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cors.New(cfg)
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cors.New(cfg)
}
