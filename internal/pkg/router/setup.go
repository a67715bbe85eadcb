package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PixelVault/app/controllers"
	"github.com/ManuelReschke/PixelVault/internal/pkg/constants"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Config carries what the routers need from the bootstrap
type Config struct {
	Services     controllers.Services
	PayPath      string
	CallbackPath string
	// RateLimit is the per-minute request budget of one client on /api.
	RateLimit int
}

func InstallRouter(app *fiber.App, cfg Config) {
	if cfg.PayPath == "" {
		cfg.PayPath = constants.PayCompleteRoute
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = constants.PaymentCallbackRoute
	}
	controllers.InitializeControllers(cfg.Services)

	// HttpRouter first: it installs the session store and the UserContext
	// middleware the API guards depend on.
	setup(app, NewHttpRouter(cfg), NewApiRouter(cfg))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
