package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/repository"
	"github.com/ManuelReschke/PixelVault/internal/pkg/entitlements"
	"github.com/ManuelReschke/PixelVault/internal/pkg/session"
	"github.com/ManuelReschke/PixelVault/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the user context for every request from the
// session. Disabled or deleted users are treated as anonymous.
func UserContextMiddleware(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := session.UserID(c)
		if userID == 0 {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		user, err := users.GetByID(userID)
		if err != nil || !user.IsActive() {
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warnf("[Session] failed to load user %d: %v", userID, err)
			}
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		// the plan is read on every request, a paid upgrade applies at once
		plan, err := users.GetPlan(userID)
		if err != nil {
			log.Warnf("[Session] failed to load plan for user %d: %v", userID, err)
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			IsLoggedIn: true,
			IsAdmin:    user.IsAdmin(),
			Plan:       string(entitlements.NormalizePlan(plan)),
		})
		return c.Next()
	}
}
