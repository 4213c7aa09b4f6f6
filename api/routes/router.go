package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/views"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/contact"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/internal/wizard"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// redisStore is the slice of the redis client the router needs.
type redisStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
	Ping(context.Context) error
}

type sessionLoader interface {
	Load(ctx context.Context, sessionID string) (session.Record, error)
}

// Dependencies is everything the router wires into handlers.
type Dependencies struct {
	Config  *config.Config
	Logger  *logger.Logger
	Redis   redisStore
	Views   controllers.Renderer
	Hub     controllers.Subscriber
	Metrics http.Handler

	Sessions      sessionLoader
	Auth          auth.Service
	Catalog       catalog.Service
	Commerce      commerce.Service
	Notifications notifications.Service
	Contact       contact.Service
	Wizards       wizard.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	v := deps.Views

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{"redis": deps.Redis}))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	r.Handle("/static/*", views.Static())
	r.Get("/api/public/ping", controllers.PublicPing())

	loginLimit := middleware.AuthRateLimit(middleware.RateLimitPolicyFor("login", cfg.AuthRateLimit), deps.Redis, logg)
	otpLimit := middleware.AuthRateLimit(middleware.RateLimitPolicyFor("otp", cfg.AuthRateLimit), deps.Redis, logg)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionParams{
			Config:      cfg.Session,
			JWT:         cfg.JWT,
			Store:       deps.Sessions,
			Credentials: deps.Auth,
			Logger:      logg,
		}))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RouteGuard(middleware.ProtectedPrefixes))
			mountPages(r, deps, loginLimit)
		})
		r.NotFound(controllers.NotFound(v, logg))

		r.Route("/api/v1", func(r chi.Router) {
			mountAPI(r, deps, loginLimit, otpLimit)
		})
	})

	return r
}

func mountPages(r chi.Router, deps Dependencies, loginLimit func(http.Handler) http.Handler) {
	cfg := deps.Config
	logg := deps.Logger
	v := deps.Views
	hub := deps.Hub
	forbidden := controllers.Forbidden(v, logg)

	r.Get("/", controllers.Home(deps.Catalog, v, logg))
	r.Get("/shop", controllers.Shop(deps.Catalog, v, logg))
	r.Get("/products/{productId}", controllers.ProductDetail(deps.Catalog, v, logg))
	r.Post("/products/{productId}/reviews", controllers.ReviewCreateForm(deps.Commerce, deps.Catalog, v, hub, logg))
	r.Get("/contact", controllers.ContactForm(v, logg))
	r.Post("/contact", controllers.ContactSubmit(deps.Contact, v, logg))

	r.Get("/login", controllers.LoginForm(v, logg))
	r.With(loginLimit).Post("/login", controllers.LoginSubmit(deps.Auth, cfg.Session, v, logg))
	r.Post("/logout", controllers.LogoutSubmit(deps.Auth, cfg.Session, logg))

	r.Get("/cart", controllers.Cart(deps.Commerce, v, logg))
	r.Post("/cart/add", controllers.CartAddForm(deps.Commerce, hub, logg))
	r.Post("/cart/update", controllers.CartUpdateForm(deps.Commerce, hub, logg))
	r.Post("/cart/remove", controllers.CartRemoveForm(deps.Commerce, hub, logg))

	r.Get("/wishlist", controllers.Wishlist(deps.Commerce, v, logg))
	r.Post("/wishlist/add", controllers.WishlistAddForm(deps.Commerce, hub, logg))
	r.Post("/wishlist/remove", controllers.WishlistRemoveForm(deps.Commerce, hub, logg))
	r.Post("/wishlist/move-to-cart", controllers.WishlistMoveToCartForm(deps.Commerce, hub, logg))

	mountWizard(r, controllers.WizardRoutes{
		Flow: wizard.FlowRegistration, Base: "/register",
		Wizards: deps.Wizards, Catalog: deps.Catalog, Views: v, Logger: logg,
	}, "/register")
	mountWizard(r, controllers.WizardRoutes{
		Flow: wizard.FlowTuition, Base: "/tuition", NeedsLogin: true,
		Wizards: deps.Wizards, Catalog: deps.Catalog, Views: v, Logger: logg,
	}, "/tuition/new")

	r.Get("/dashboard", controllers.Dashboard(deps.Auth, deps.Notifications, "Dashboard", v, logg))
	r.Get("/profile", controllers.Dashboard(deps.Auth, deps.Notifications, "Your profile", v, logg))
	r.With(middleware.RequireRole(forbidden, pkgAuth.RoleTutor)).
		Get("/dashboard/tutor", controllers.Dashboard(deps.Auth, deps.Notifications, "Tutor dashboard", v, logg))
	r.With(middleware.RequireRole(forbidden, pkgAuth.RoleStudent)).
		Get("/dashboard/student", controllers.Dashboard(deps.Auth, deps.Notifications, "Student dashboard", v, logg))
	r.With(middleware.RequireRole(forbidden, pkgAuth.RoleAdmin)).
		Get("/admin", controllers.Dashboard(deps.Auth, deps.Notifications, "Admin", v, logg))

	r.Post("/notifications/{notificationId}/read", controllers.NotificationReadForm(deps.Notifications, hub, logg))
	r.Post("/notifications/read-all", controllers.NotificationsReadAllForm(deps.Notifications, hub, logg))
}

func mountWizard(r chi.Router, wr controllers.WizardRoutes, startPath string) {
	r.Get(startPath, wr.Start())
	r.Route(wr.Base+"/{wizardId}", func(r chi.Router) {
		r.Get("/", wr.Show())
		r.Post("/next", wr.Next())
		r.Post("/back", wr.Back())
		r.Post("/resend", wr.Resend())
		r.Post("/verify", wr.Verify())
	})
}

func mountAPI(r chi.Router, deps Dependencies, loginLimit, otpLimit func(http.Handler) http.Handler) {
	cfg := deps.Config
	logg := deps.Logger
	hub := deps.Hub

	r.NotFound(controllers.NotFoundJSON(logg))
	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", controllers.LoginJSON(deps.Auth, cfg.Session, logg))
		r.Post("/logout", controllers.LogoutJSON(deps.Auth, cfg.Session, logg))
		r.Post("/refresh", controllers.RefreshJSON(deps.Auth, logg))
		r.Get("/session", controllers.SessionJSON())
		r.With(middleware.RequireAuth(logg)).Get("/me", controllers.MeJSON(deps.Auth, logg))
		r.With(otpLimit).Post("/send-otp", controllers.SendOTPJSON(deps.Auth, logg))
		r.With(otpLimit).Post("/verify-otp", controllers.VerifyOTPJSON(deps.Auth, logg))
	})

	r.Get("/products", controllers.ProductsJSON(deps.Catalog, logg))
	r.Get("/products/{productId}", controllers.ProductJSON(deps.Catalog, logg))
	r.Get("/categories", controllers.CategoriesJSON(deps.Catalog, logg))
	r.Get("/districts", controllers.DistrictsJSON(deps.Catalog, logg))
	r.Get("/settings", controllers.SettingsJSON(deps.Catalog, logg))
	r.Get("/reviews", controllers.ReviewsJSON(deps.Commerce, logg))
	r.Post("/contact", controllers.ContactJSON(deps.Contact, logg))

	r.Route("/wizards", func(r chi.Router) {
		r.Post("/", controllers.WizardStartJSON(deps.Wizards, logg))
		r.Route("/{wizardId}", func(r chi.Router) {
			r.Get("/", controllers.WizardGetJSON(deps.Wizards, logg))
			r.Post("/next", controllers.WizardNextJSON(deps.Wizards, logg))
			r.Post("/back", controllers.WizardBackJSON(deps.Wizards, logg))
			r.With(otpLimit).Post("/resend", controllers.WizardResendJSON(deps.Wizards, logg))
			r.Post("/verify", controllers.WizardVerifyJSON(deps.Wizards, logg))
		})
	})

	r.Get("/events", controllers.Events(controllers.EventsParams{
		Hub:          hub,
		Unread:       deps.Notifications,
		PollInterval: cfg.Notifications.PollInterval,
		Logger:       logg,
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartJSON(deps.Commerce, logg))
			r.Get("/summary", controllers.CartSummaryJSON(deps.Commerce, logg))
			r.Post("/items", controllers.CartAddJSON(deps.Commerce, hub, logg))
			r.Put("/items", controllers.CartUpdateJSON(deps.Commerce, hub, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveJSON(deps.Commerce, hub, logg))
		})
		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistJSON(deps.Commerce, logg))
			r.Get("/summary", controllers.WishlistSummaryJSON(deps.Commerce, logg))
			r.Post("/items", controllers.WishlistAddJSON(deps.Commerce, hub, logg))
			r.Delete("/items/{productId}", controllers.WishlistRemoveJSON(deps.Commerce, hub, logg))
			r.Post("/items/{productId}/move-to-cart", controllers.WishlistMoveToCartJSON(deps.Commerce, hub, logg))
		})
		r.Post("/reviews", controllers.ReviewCreateJSON(deps.Commerce, hub, logg))
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsJSON(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadCountJSON(deps.Notifications, logg))
			r.Patch("/{notificationId}/read", controllers.NotificationReadJSON(deps.Notifications, hub, logg))
			r.Post("/read-all", controllers.NotificationsReadAllJSON(deps.Notifications, hub, logg))
		})
	})
}
