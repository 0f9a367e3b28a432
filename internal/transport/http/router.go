package http

import (
	"errors"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/socsahar/Vapes-Shop-sub002/internal/auth"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/handler"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/middleware"
)

type Handlers struct {
	Order        *handler.OrderHandler
	Shop         *handler.ShopHandler
	GeneralOrder *handler.GeneralOrderHandler
	Notification *handler.NotificationHandler
	Health       *handler.HealthHandler
}

type AppConfig struct {
	LimiterMax        int
	LimiterExpiration time.Duration
	Gatherer          prometheus.Gatherer
}

func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}

			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(otelfiber.Middleware())

	if cfg.LimiterMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.LimiterMax,
			Expiration: cfg.LimiterExpiration,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/healthz" || c.Path() == "/metrics"
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests. Try again later.",
				})
			},
		}))
	}

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return app
}

func RegisterRoutes(app *fiber.App, h *Handlers, guard auth.Guard) {
	allow := func(action auth.Action) fiber.Handler {
		return middleware.RequireAction(guard, action)
	}

	app.Get("/healthz", h.Health.Healthz)

	api := app.Group("/api")

	orders := api.Group("/orders")
	orders.Get("", allow(auth.ActionListOrders), h.Order.List)
	orders.Delete("/:id", allow(auth.ActionDeleteOrder), h.Order.Delete)

	shop := api.Group("/shop")
	shop.Get("/status", h.Shop.GetStatus)
	shop.Put("/status", allow(auth.ActionSetShopStatus), h.Shop.SetStatus)

	generalOrders := api.Group("/general-orders")
	generalOrders.Get("", h.GeneralOrder.List)
	generalOrders.Post("/close-expired", allow(auth.ActionCloseGeneralOrders), h.GeneralOrder.CloseExpired)

	notifications := api.Group("/notifications")
	notifications.Get("/users", allow(auth.ActionListRecipients), h.Notification.ListUsers)
}
