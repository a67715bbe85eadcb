package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/PixelVault/app/controllers"
	"github.com/ManuelReschke/PixelVault/internal/pkg/constants"
	"github.com/ManuelReschke/PixelVault/internal/pkg/middleware"
)

type ApiRouter struct {
	cfg Config
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The gateway callback sits outside the limiter and the session guard,
	// it authenticates by signature.
	app.Post(h.cfg.CallbackPath, controllers.HandlePaymentCallback)

	limit := h.cfg.RateLimit
	if limit <= 0 {
		limit = 120
	}
	api := app.Group(constants.APIPrefix, cors.New(), limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
	}))

	v1 := api.Group("/v1")
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})
	v1.Get("/catalog", controllers.HandleCatalog)
	v1.Get("/shop/items", controllers.HandleShopItems)

	// Session
	v1.Post("/session/dev-login", controllers.HandleDevLogin)
	v1.Post("/session/logout", controllers.HandleLogout)

	auth := v1.Group("", middleware.RequireAPISessionAuth)
	auth.Get("/me", controllers.HandleMe)

	// Orders and payment
	auth.Post("/orders", controllers.HandleCreateOrder)
	auth.Get("/orders", controllers.HandleListOrders)
	auth.Get("/orders/:orderNo", controllers.HandleGetOrder)

	// Coins
	auth.Post("/shop/purchase", controllers.HandleShopPurchase)
	auth.Get("/shop/purchases", controllers.HandleShopPurchases)
	auth.Get("/wallet", controllers.HandleWallet)
	auth.Get("/wallet/ledger", controllers.HandleWalletLedger)

	// Subscription
	auth.Get("/subscription", controllers.HandleGetSubscription)
	auth.Post("/subscription/cancel", controllers.HandleCancelSubscription)
	auth.Post("/subscription/resume", controllers.HandleResumeSubscription)

	admin := v1.Group("/admin", middleware.RequireAPIAdmin)
	admin.Get("/wallet/:userId/verify", controllers.HandleAdminWalletVerify)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Post("/shop/items", controllers.HandleAdminSaveShopItem)
	admin.Put("/shop/items/:itemId", controllers.HandleAdminSaveShopItem)
}

func NewApiRouter(cfg Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}
