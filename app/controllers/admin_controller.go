package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/ledger"
	"github.com/ManuelReschke/PixelVault/internal/pkg/statistics"
)

// AdminController serves operator endpoints
type AdminController struct {
	ledger *ledger.Store
	stats  *statistics.Collector
}

func NewAdminController(store *ledger.Store, stats *statistics.Collector) *AdminController {
	return &AdminController{ledger: store, stats: stats}
}

// HandleWalletVerify replays a user's ledger against the stored balance
func (ac *AdminController) HandleWalletVerify(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	report, err := ac.ledger.VerifyConsistency(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "report": report})
}

func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	if ac.stats == nil {
		return respondError(c, apperr.NotFound("statistics disabled"))
	}
	data, err := ac.stats.Snapshot(c.UserContext())
	if err != nil {
		return respondError(c, apperr.Internal(err, "collect statistics"))
	}
	return c.JSON(fiber.Map{"success": true, "stats": data})
}
