package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/repository"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/env"
	"github.com/ManuelReschke/PixelVault/internal/pkg/session"
	"github.com/ManuelReschke/PixelVault/internal/pkg/usercontext"
)

// SessionController binds sessions to users. Password and OAuth login live
// outside this service; the dev login exists for local testing only.
type SessionController struct {
	users repository.UserRepository
}

func NewSessionController(users repository.UserRepository) *SessionController {
	return &SessionController{users: users}
}

type devLoginRequest struct {
	Email string `json:"email" form:"email"`
}

func (sc *SessionController) HandleDevLogin(c *fiber.Ctx) error {
	if !env.IsDev() {
		return respondError(c, apperr.NotFound("not found"))
	}
	var req devLoginRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return respondError(c, apperr.Validation("email is required"))
	}

	user, err := sc.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.Auth("unknown user"))
		}
		return respondError(c, apperr.Internal(err, "load user"))
	}
	if !user.IsActive() {
		return respondError(c, apperr.Auth("user inactive"))
	}
	if err := session.Login(c, user.ID, user.Name, user.IsAdmin()); err != nil {
		return respondError(c, apperr.Internal(err, "create session"))
	}
	return c.JSON(fiber.Map{"success": true, "user_id": user.ID})
}

func (sc *SessionController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		return respondError(c, apperr.Internal(err, "destroy session"))
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleMe returns the resolved user context
func (sc *SessionController) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "user": usercontext.GetUserContext(c)})
}
