package router

import (
	"strings"
	"time"

	"github.com/ManuelReschke/PixelVault/app/controllers"
	"github.com/ManuelReschke/PixelVault/internal/pkg/constants"
	"github.com/ManuelReschke/PixelVault/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

// registerCSRFProtectedRoutes installs the browser facing mock gateway. The
// POST carries the signed redirect back, so it is checked twice: CSRF token
// and payment signature.
func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.APIPrefix+"/")
		},
	}

	group := app.Group("", csrf.New(csrfConf))
	group.Get(h.cfg.PayPath, controllers.HandlePayPage)
	group.Post(h.cfg.PayPath, controllers.HandlePayComplete)
}
