package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrimarket/agrimarket-backend/api/controllers"
	"github.com/agrimarket/agrimarket-backend/api/middleware"
	authsvc "github.com/agrimarket/agrimarket-backend/internal/auth"
	"github.com/agrimarket/agrimarket-backend/internal/notifications"
	"github.com/agrimarket/agrimarket-backend/internal/orders"
	"github.com/agrimarket/agrimarket-backend/internal/products"
	"github.com/agrimarket/agrimarket-backend/internal/reviews"
	"github.com/agrimarket/agrimarket-backend/internal/transactions"
	"github.com/agrimarket/agrimarket-backend/internal/users"
	"github.com/agrimarket/agrimarket-backend/pkg/auth/session"
	"github.com/agrimarket/agrimarket-backend/pkg/config"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
	"github.com/agrimarket/agrimarket-backend/pkg/metrics"
	"github.com/agrimarket/agrimarket-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             pinger
	Redis          *redis.Client
	SessionChecker session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics
	Registry       prometheus.Gatherer

	Auth          authsvc.Service
	Users         users.Service
	Products      products.Service
	Orders        orders.Service
	Transactions  transactions.Service
	Reviews       reviews.Service
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg, d.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/adwapay", controllers.AdwaPayWebhook(d.Transactions, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, d.SessionChecker, logg)).Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.SessionChecker, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UserProfile(d.Users, logg))
			r.Put("/", controllers.UserUpdateProfile(d.Users, logg))
			r.Delete("/", controllers.UserDeleteAccount(d.Users, logg))
			r.Post("/password", controllers.UserChangePassword(d.Users, logg))
			r.Post("/push-token", controllers.UserSavePushToken(d.Users, logg))
			r.Route("/addresses", func(r chi.Router) {
				r.Post("/", controllers.UserAddAddress(d.Users, logg))
				r.Put("/{addressId}", controllers.UserUpdateAddress(d.Users, logg))
				r.Delete("/{addressId}", controllers.UserDeleteAddress(d.Users, logg))
				r.Post("/{addressId}/default", controllers.UserSetDefaultAddress(d.Users, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductSearch(d.Products, logg))
			r.Get("/mine", controllers.ProductListMine(d.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(d.Products, logg))
			r.Get("/{productId}/reviews", controllers.ReviewListByProduct(d.Reviews, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.RoleFarmer), logg))
				r.Post("/", controllers.ProductCreate(d.Products, logg))
				r.Patch("/{productId}", controllers.ProductUpdate(d.Products, logg))
				r.Delete("/{productId}", controllers.ProductDelete(d.Products, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(d.Orders, logg))
			r.Get("/", controllers.OrderList(d.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(d.Orders, logg))
			r.Post("/{orderId}/complete", controllers.OrderMarkComplete(d.Orders, logg))
			r.With(middleware.RequireRole(string(enums.RoleFarmer), logg)).
				Post("/{orderId}/dispatch", controllers.OrderDispatch(d.Orders, logg))
			r.Post("/{orderId}/deliver", controllers.OrderConfirmDelivery(d.Orders, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/{orderId}/pay", controllers.TransactionInitiate(d.Transactions, logg))
			r.Get("/{orderId}/status", controllers.TransactionStatus(d.Transactions, logg))
			r.Post("/{orderId}/external", controllers.TransactionConfirmExternal(d.Transactions, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", controllers.ReviewCreate(d.Reviews, logg))
			r.Patch("/{reviewId}", controllers.ReviewUpdate(d.Reviews, logg))
			r.Delete("/{reviewId}", controllers.ReviewDelete(d.Reviews, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
			r.Delete("/{notificationId}", controllers.DeleteNotification(d.Notifications, logg))
		})
	})

	return r
}
