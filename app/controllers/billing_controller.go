package controllers

import (
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/billing"
	"github.com/ManuelReschke/PixelVault/internal/pkg/usercontext"
)

// BillingController serves orders, the gateway callback and the mock
// payment pages
type BillingController struct {
	svc      *billing.Service
	validate *validator.Validate
}

func NewBillingController(svc *billing.Service) *BillingController {
	return &BillingController{svc: svc, validate: validator.New()}
}

type createOrderRequest struct {
	ProductType string `json:"product_type" form:"product_type" validate:"required,oneof=coins subscription shop_item"`
	ProductID   string `json:"product_id" form:"product_id" validate:"required,max=64"`
}

// HandleCatalog lists the money priced products
func (bc *BillingController) HandleCatalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"coin_packs": bc.svc.Catalog().CoinPacks(),
	})
}

// HandleCreateOrder prices the product and returns the signed pay URL
func (bc *BillingController) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("malformed request body"))
	}
	if err := bc.validate.Struct(req); err != nil {
		return respondError(c, apperr.Validation("product_type and product_id are required"))
	}

	order, payURL, err := bc.svc.CreateOrder(c.UserContext(), usercontext.GetUserID(c), req.ProductType, req.ProductID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"order":   order,
		"pay_url": payURL,
	})
}

func (bc *BillingController) HandleListOrders(c *fiber.Ctx) error {
	list, err := bc.svc.ListOrders(c.UserContext(), usercontext.GetUserID(c), queryInt(c, "limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "orders": list})
}

func (bc *BillingController) HandleGetOrder(c *fiber.Ctx) error {
	order, err := bc.svc.GetOrder(c.UserContext(), usercontext.GetUserID(c), c.Params("orderNo"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "order": order})
}

// HandlePaymentCallback accepts gateway notifications as form or JSON.
func (bc *BillingController) HandlePaymentCallback(c *fiber.Ctx) error {
	var in billing.CallbackInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, apperr.Validation("malformed callback body"))
	}
	in.IP = clientIP(c)

	res, err := bc.svc.ProcessCallback(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"duplicate": res.Duplicate,
	})
}

// HandlePayPage renders the mock gateway for a signed redirect.
func (bc *BillingController) HandlePayPage(c *fiber.Ctx) error {
	q := queryValues(c)
	params, order, err := bc.svc.OpenPayPage(c.UserContext(), q, clientIP(c))
	if err != nil {
		return c.Status(apperr.Status(err)).Render("pay/result", fiber.Map{
			"Title":   "Payment",
			"Success": false,
			"Message": apperr.PublicMessage(err),
		})
	}
	return c.Render("pay/complete", fiber.Map{
		"Title":     "Payment",
		"Action":    c.Path(),
		"Order":     order,
		"Params":    params,
		"Query":     q,
		"CSRFToken": c.Locals("csrf"),
	})
}

// HandlePayComplete plays the gateway: the signed redirect parameters come
// back as form fields together with the chosen outcome.
func (bc *BillingController) HandlePayComplete(c *fiber.Ctx) error {
	q := url.Values{}
	for _, key := range []string{"order_no", "amount", "uid", "ts", "nonce", "sign"} {
		q.Set(key, c.FormValue(key))
	}

	res, err := bc.svc.CompleteMockPayment(c.UserContext(), q, c.FormValue("outcome"), clientIP(c))
	if err != nil {
		return c.Status(apperr.Status(err)).Render("pay/result", fiber.Map{
			"Title":   "Payment",
			"Success": false,
			"Message": apperr.PublicMessage(err),
		})
	}
	return c.Render("pay/result", fiber.Map{
		"Title":     "Payment",
		"Success":   res.Order.Status == models.OrderStatusPaid,
		"Order":     res.Order,
		"Duplicate": res.Duplicate,
	})
}

func queryValues(c *fiber.Ctx) url.Values {
	q := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		q.Add(string(k), string(v))
	})
	return q
}
