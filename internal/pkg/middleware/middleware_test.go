package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/app/repository"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/PixelVault/internal/pkg/session"
	"github.com/ManuelReschke/PixelVault/internal/pkg/usercontext"
)

func newApp(t *testing.T) (*fiber.App, *gorm.DB, *models.User) {
	t.Helper()
	db := dbtest.Open(t)
	users := repository.NewUserRepository(db)
	user := dbtest.CreateUser(t, db, "member", 0)
	require.NoError(t, db.Create(&models.UserSettings{UserID: user.ID, Plan: models.PlanPremium}).Error)

	session.UseStore(fibersession.New(fibersession.Config{KeyLookup: "cookie:session_id"}))
	t.Cleanup(func() { session.UseStore(nil) })

	app := fiber.New()
	app.Use(UserContextMiddleware(users))
	app.Post("/login/:id", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return err
		}
		return session.Login(c, uint(id), "member", false)
	})
	app.Get("/me", RequireAPISessionAuth, func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/admin", RequireAPIAdmin, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, db, user
}

func login(t *testing.T, app *fiber.App, userID uint) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login/"+strconv.FormatUint(uint64(userID), 10), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			return ck
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestAnonymousRequestsAreRejected(t *testing.T) {
	app, _, _ := newApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionResolvesUserAndPlan(t *testing.T) {
	app, _, user := newApp(t)
	cookie := login(t, app, user.ID)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var uc usercontext.UserContext
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uc))
	assert.Equal(t, user.ID, uc.UserID)
	assert.True(t, uc.IsLoggedIn)
	assert.Equal(t, models.PlanPremium, uc.Plan)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDisabledUserIsAnonymous(t *testing.T) {
	app, db, user := newApp(t)
	cookie := login(t, app, user.ID)

	require.NoError(t, db.Model(user).Update("status", models.STATUS_DISABLED).Error)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
