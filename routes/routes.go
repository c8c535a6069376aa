package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retail-sales/controllers"
	"retail-sales/logger"
	"retail-sales/middleware"
)

type Deps struct {
	BasePath string
	Sales    controllers.SalesQuerier
	Filters  controllers.FilterOptionsProvider
	Store    controllers.Pinger
	Auth     *controllers.Auth
	Tokens   middleware.TokenParser
	Log      logger.Logger
}

func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", controllers.Health(d.Store))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(d.BasePath)

	// sales
	api.Get("/sales", controllers.GetSales(d.Sales, d.Log))
	api.Get("/sales/filters", controllers.GetFilters(d.Filters))

	// auth
	if d.Auth != nil {
		auth := api.Group("/auth")
		auth.Post("/signup", d.Auth.Signup)
		auth.Post("/login", d.Auth.Login)
		auth.Get("/me", middleware.JWTMiddleware(d.Tokens), d.Auth.Me)
	}
}
