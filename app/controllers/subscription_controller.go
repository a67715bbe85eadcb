package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/billing"
	"github.com/ManuelReschke/PixelVault/internal/pkg/usercontext"
)

type SubscriptionController struct {
	subs *billing.SubscriptionManager
}

func NewSubscriptionController(subs *billing.SubscriptionManager) *SubscriptionController {
	return &SubscriptionController{subs: subs}
}

type cancelRequest struct {
	Reason string `json:"reason" form:"reason"`
}

func (sc *SubscriptionController) HandleGet(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	sub, err := sc.subs.GetSubscription(c.UserContext(), userCtx.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"subscription": sub,
		"plan":         userCtx.Plan,
	})
}

// HandleCancel stops auto renewal, the paid period stays
func (sc *SubscriptionController) HandleCancel(c *fiber.Ctx) error {
	var req cancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, apperr.Validation("malformed request body"))
		}
	}
	sub, err := sc.subs.CancelSubscription(c.UserContext(), usercontext.GetUserID(c), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "subscription": sub})
}

func (sc *SubscriptionController) HandleResume(c *fiber.Ctx) error {
	sub, err := sc.subs.ResumeAutoRenew(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "subscription": sub})
}
