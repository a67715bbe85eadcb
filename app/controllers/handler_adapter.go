package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PixelVault/app/repository"
	"github.com/ManuelReschke/PixelVault/internal/pkg/billing"
	"github.com/ManuelReschke/PixelVault/internal/pkg/ledger"
	"github.com/ManuelReschke/PixelVault/internal/pkg/shop"
	"github.com/ManuelReschke/PixelVault/internal/pkg/statistics"
)

// ItemCache is the shared cache used for catalog reads
type ItemCache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
	Delete(key string) error
}

// Services bundles the components the HTTP layer talks to
type Services struct {
	Billing *billing.Service
	Shop    *shop.Orchestrator
	Ledger  *ledger.Store
	Users   repository.UserRepository
	Stats   *statistics.Collector
	// Cache is optional; without it every catalog read hits the database.
	Cache ItemCache
}

// Global controller instances
var (
	billingController      *BillingController
	shopController         *ShopController
	walletController       *WalletController
	subscriptionController *SubscriptionController
	sessionController      *SessionController
	adminController        *AdminController
)

// InitializeControllers builds the global controllers from the services
func InitializeControllers(s Services) {
	billingController = NewBillingController(s.Billing)
	shopController = NewShopController(s.Shop, s.Cache)
	walletController = NewWalletController(s.Ledger)
	subscriptionController = NewSubscriptionController(s.Billing.Subscriptions())
	sessionController = NewSessionController(s.Users)
	adminController = NewAdminController(s.Ledger, s.Stats)
}

func mustInitialized[T any](c *T) *T {
	if c == nil {
		panic("Controllers not initialized. Call InitializeControllers first.")
	}
	return c
}

// Adapter functions used by the router

func HandleCatalog(c *fiber.Ctx) error {
	return mustInitialized(billingController).HandleCatalog(c)
}

func HandleCreateOrder(c *fiber.Ctx) error {
	return mustInitialized(billingController).HandleCreateOrder(c)
}

func HandleListOrders(c *fiber.Ctx) error {
	return mustInitialized(billingController).HandleListOrders(c)
}

func HandleGetOrder(c *fiber.Ctx) error {
	return mustInitialized(billingController).HandleGetOrder(c)
}

func HandlePaymentCallback(c *fiber.Ctx) error {
	return mustInitialized(billingController).HandlePaymentCallback(c)
}

func HandlePayPage(c *fiber.Ctx) error {
	return mustInitialized(billingController).HandlePayPage(c)
}

func HandlePayComplete(c *fiber.Ctx) error {
	return mustInitialized(billingController).HandlePayComplete(c)
}

func HandleShopItems(c *fiber.Ctx) error {
	return mustInitialized(shopController).HandleItems(c)
}

func HandleShopPurchase(c *fiber.Ctx) error {
	return mustInitialized(shopController).HandlePurchase(c)
}

func HandleShopPurchases(c *fiber.Ctx) error {
	return mustInitialized(shopController).HandlePurchases(c)
}

func HandleAdminSaveShopItem(c *fiber.Ctx) error {
	return mustInitialized(shopController).HandleAdminSaveItem(c)
}

func HandleWallet(c *fiber.Ctx) error {
	return mustInitialized(walletController).HandleWallet(c)
}

func HandleWalletLedger(c *fiber.Ctx) error {
	return mustInitialized(walletController).HandleLedger(c)
}

func HandleAdminWalletVerify(c *fiber.Ctx) error {
	return mustInitialized(adminController).HandleWalletVerify(c)
}

func HandleAdminStats(c *fiber.Ctx) error {
	return mustInitialized(adminController).HandleStats(c)
}

func HandleGetSubscription(c *fiber.Ctx) error {
	return mustInitialized(subscriptionController).HandleGet(c)
}

func HandleCancelSubscription(c *fiber.Ctx) error {
	return mustInitialized(subscriptionController).HandleCancel(c)
}

func HandleResumeSubscription(c *fiber.Ctx) error {
	return mustInitialized(subscriptionController).HandleResume(c)
}

func HandleDevLogin(c *fiber.Ctx) error {
	return mustInitialized(sessionController).HandleDevLogin(c)
}

func HandleLogout(c *fiber.Ctx) error {
	return mustInitialized(sessionController).HandleLogout(c)
}

func HandleMe(c *fiber.Ctx) error {
	return mustInitialized(sessionController).HandleMe(c)
}
