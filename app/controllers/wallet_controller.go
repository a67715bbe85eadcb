package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PixelVault/internal/pkg/ledger"
	"github.com/ManuelReschke/PixelVault/internal/pkg/usercontext"
)

// WalletController exposes the coin balance and its ledger
type WalletController struct {
	ledger *ledger.Store
}

func NewWalletController(store *ledger.Store) *WalletController {
	return &WalletController{ledger: store}
}

func (wc *WalletController) HandleWallet(c *fiber.Ctx) error {
	balance, err := wc.ledger.Balance(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "balance": balance})
}

// HandleLedger pages through the caller's ledger, newest first
func (wc *WalletController) HandleLedger(c *fiber.Ctx) error {
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)
	entries, total, err := wc.ledger.History(c.UserContext(), usercontext.GetUserID(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
