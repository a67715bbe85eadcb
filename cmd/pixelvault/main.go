package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/controllers"
	"github.com/ManuelReschke/PixelVault/app/repository"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/billing"
	"github.com/ManuelReschke/PixelVault/internal/pkg/cache"
	"github.com/ManuelReschke/PixelVault/internal/pkg/constants"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database"
	"github.com/ManuelReschke/PixelVault/internal/pkg/env"
	"github.com/ManuelReschke/PixelVault/internal/pkg/ledger"
	"github.com/ManuelReschke/PixelVault/internal/pkg/locker"
	"github.com/ManuelReschke/PixelVault/internal/pkg/orders"
	"github.com/ManuelReschke/PixelVault/internal/pkg/paysign"
	"github.com/ManuelReschke/PixelVault/internal/pkg/router"
	"github.com/ManuelReschke/PixelVault/internal/pkg/shop"
	"github.com/ManuelReschke/PixelVault/internal/pkg/statistics"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	signer, err := paysign.NewSigner(
		env.GetEnv("PAYMENT_SECRET", ""),
		env.GetEnvSeconds("SIGNATURE_WINDOW_SECONDS", paysign.DefaultWindow),
	)
	if err != nil {
		log.Fatalf("Payment signing is not configured: %v", err)
	}

	payPath := env.GetEnv("PAY_COMPLETE_PATH", constants.PayCompleteRoute)
	services := buildServices(database.GetDB(), signer, payPath)

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/pixelvault to project root
		"../../../", // Fallback
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		Views:     html.New(basePath+"views", ".html"),
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics, only with configured credentials
	if pw := env.GetEnv("METRICS_PASSWORD", ""); pw != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				env.GetEnv("METRICS_USER", "admin"): pw,
			},
		}), monitor.New())
	}

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: constants.DocsBasePath,
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, router.Config{
		Services:     services,
		PayPath:      payPath,
		CallbackPath: env.GetEnv("PAYMENT_CALLBACK_PATH", constants.PaymentCallbackRoute),
		RateLimit:    env.GetEnvInt("API_RATE_LIMIT", 120),
	})

	return app
}

// buildServices wires the monetization components. Locks and the catalog
// cache use Redis when it answers, otherwise they stay in process.
func buildServices(db *gorm.DB, signer *paysign.Signer, payPath string) controllers.Services {
	var (
		lk        locker.Locker = locker.NewLocal()
		itemCache controllers.ItemCache
		statCache statistics.Cache
	)
	if cache.Available(2 * time.Second) {
		lk = locker.New(cache.GetClient())
		itemCache = cache.Shared{}
		statCache = cache.Shared{}
	} else {
		log.Printf("Cache unavailable, using in-process locks only")
	}

	repos := repository.GetGlobalRepositories()
	trail := audit.NewGormTrail(db)

	wallet := ledger.NewStore(db, lk)
	orderStore := orders.NewStore(db, env.GetEnvSeconds("ORDER_TTL_SECONDS", orders.DefaultTTL))
	orchestrator := shop.NewOrchestrator(db, repos, lk, trail)

	billingRepo := billing.NewRepository(db)
	subs := billing.NewSubscriptionManager(billingRepo, lk, trail)
	catalog := billing.NewCatalog(orchestrator)
	grantor := billing.NewGrantor(wallet, subs, orchestrator, catalog, trail)
	processor := billing.NewCallbackProcessor(orderStore, signer, grantor, billingRepo, trail)

	return controllers.Services{
		Billing: billing.NewService(billing.Config{
			Orders:    orderStore,
			Signer:    signer,
			Catalog:   catalog,
			Processor: processor,
			Subs:      subs,
			Audit:     trail,
			PayPath:   payPath,
		}),
		Shop:   orchestrator,
		Ledger: wallet,
		Users:  repos.User,
		Stats:  statistics.NewCollector(db, statCache),
		Cache:  itemCache,
	}
}
