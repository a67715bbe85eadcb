package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/shop"
	"github.com/ManuelReschke/PixelVault/internal/pkg/usercontext"
)

const (
	shopItemsCacheKey = "pixelvault:shop:items"
	shopItemsCacheTTL = 30 * time.Second
)

// ShopController serves the item catalog and coin purchases
type ShopController struct {
	shop     *shop.Orchestrator
	cache    ItemCache
	validate *validator.Validate
}

func NewShopController(orchestrator *shop.Orchestrator, cache ItemCache) *ShopController {
	return &ShopController{shop: orchestrator, cache: cache, validate: validator.New()}
}

type purchaseRequest struct {
	ItemID uint `json:"itemId" form:"itemId" validate:"required"`
}

// HandleItems lists active items. The cached copy is display data only,
// purchases always re-read stock inside their transaction.
func (sc *ShopController) HandleItems(c *fiber.Ctx) error {
	if items, ok := sc.cachedItems(); ok {
		return c.JSON(fiber.Map{"success": true, "items": items})
	}

	items, err := sc.shop.ListItems(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	sc.storeItems(items)
	return c.JSON(fiber.Map{"success": true, "items": items})
}

// HandlePurchase buys an item with coins
func (sc *ShopController) HandlePurchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("malformed request body"))
	}
	if err := sc.validate.Struct(req); err != nil {
		return respondError(c, apperr.Validation("itemId is required"))
	}

	res, err := sc.shop.Purchase(c.UserContext(), usercontext.GetUserID(c), req.ItemID)
	if err != nil {
		if res != nil && res.Refunded && errors.Is(err, shop.ErrSoldOut) {
			sc.invalidate()
			return c.Status(apperr.Status(err)).JSON(fiber.Map{
				"success":  false,
				"error":    apperr.PublicMessage(err),
				"refunded": true,
				"balance":  res.Balance,
			})
		}
		return respondError(c, err)
	}

	if !res.Item.IsUnlimited() {
		sc.invalidate()
	}
	return c.JSON(fiber.Map{
		"success": true,
		"item":    res.Item,
		"balance": res.Balance,
	})
}

func (sc *ShopController) cachedItems() ([]models.ShopItem, bool) {
	if sc.cache == nil {
		return nil, false
	}
	raw, err := sc.cache.Get(shopItemsCacheKey)
	if err != nil || raw == "" {
		return nil, false
	}
	var items []models.ShopItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Warnf("[Shop] dropping unreadable item cache: %v", err)
		sc.invalidate()
		return nil, false
	}
	return items, true
}

func (sc *ShopController) storeItems(items []models.ShopItem) {
	if sc.cache == nil {
		return
	}
	b, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := sc.cache.Set(shopItemsCacheKey, string(b), shopItemsCacheTTL); err != nil {
		log.Warnf("[Shop] failed to cache items: %v", err)
	}
}

func (sc *ShopController) invalidate() {
	if sc.cache == nil {
		return
	}
	if err := sc.cache.Delete(shopItemsCacheKey); err != nil {
		log.Warnf("[Shop] failed to invalidate item cache: %v", err)
	}
}

// HandlePurchases lists the caller's purchases, newest first
func (sc *ShopController) HandlePurchases(c *fiber.Ctx) error {
	list, err := sc.shop.ListPurchases(c.UserContext(), usercontext.GetUserID(c), queryInt(c, "limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "purchases": list})
}

type itemRequest struct {
	Name         string `json:"name" validate:"required,max=150"`
	Description  string `json:"description"`
	Category     string `json:"category" validate:"required,oneof=avatar_frame badge theme boost"`
	PriceCoins   int64  `json:"price_coins" validate:"gte=0"`
	PriceMinor   int64  `json:"price_minor" validate:"gte=0"`
	Stock        int64  `json:"stock" validate:"gte=-1"`
	TierRequired string `json:"tier_required"`
	IsActive     bool   `json:"is_active"`
	SortOrder    int    `json:"sort_order"`
}

// HandleAdminSaveItem creates an item, or updates one when the route carries
// an itemId. Stock sent for an existing item is ignored.
func (sc *ShopController) HandleAdminSaveItem(c *fiber.Ctx) error {
	var req itemRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("malformed request body"))
	}
	if err := sc.validate.Struct(req); err != nil {
		return respondError(c, apperr.Validation("invalid item: %v", err))
	}

	item := &models.ShopItem{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		PriceCoins:   req.PriceCoins,
		PriceMinor:   req.PriceMinor,
		Stock:        req.Stock,
		TierRequired: req.TierRequired,
		IsActive:     req.IsActive,
		SortOrder:    req.SortOrder,
	}
	status := fiber.StatusCreated
	if c.Params("itemId") != "" {
		id, err := paramUint(c, "itemId")
		if err != nil {
			return respondError(c, err)
		}
		item.ID = id
		status = fiber.StatusOK
	}

	if err := sc.shop.SaveItem(c.UserContext(), item); err != nil {
		return respondError(c, err)
	}
	sc.invalidate()
	return c.Status(status).JSON(fiber.Map{"success": true, "item": item})
}
