package distributionController

import (
	"amap/middleware"
	"amap/services"
	distributionValidator "amap/validators/distribution"

	"github.com/gofiber/fiber/v2"
)

func itemInputs(items []distributionValidator.BasketItem) []services.ItemInput {
	out := make([]services.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, services.ItemInput{
			ProductID:     it.ProductID,
			QuantitySmall: it.QuantitySmall,
			QuantityLarge: it.QuantityLarge,
		})
	}
	return out
}

// ComposeBasket creates or replaces the basket of a week
func (h *Handler) ComposeBasket(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedComposeBasket").(*distributionValidator.ComposeBasketRequest)
	if !ok {
		return invalidRequest(c)
	}

	basket, err := h.engine.Baskets.Compose(h.ctx(c), services.ComposeInput{
		Year:             reqData.Year,
		WeekNumber:       reqData.WeekNumber,
		DistributionDate: reqData.Date,
		Notes:            reqData.Notes,
		Items:            itemInputs(reqData.Items),
	})
	if err != nil {
		return h.fail(c, err, "compose basket")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Basket saved!", basket)
}

// ListBaskets returns the baskets of a year
func (h *Handler) ListBaskets(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedListBaskets").(*distributionValidator.ListBasketsRequest)
	if !ok {
		return invalidRequest(c)
	}

	baskets, err := h.engine.Baskets.List(h.ctx(c), reqData.Year, reqData.Published)
	if err != nil {
		return h.fail(c, err, "fetch baskets")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Baskets fetched!", baskets)
}

// GetBasket returns one basket with its items
func (h *Handler) GetBasket(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	basket, err := h.engine.Baskets.Get(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "fetch basket")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Basket fetched!", basket)
}

// GetCurrentBasket returns the published basket closest to ?date= (default
// today). It is the only endpoint open to members.
func (h *Handler) GetCurrentBasket(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedStatusAt").(*distributionValidator.StatusQuery)
	if !ok {
		return invalidRequest(c)
	}

	basket, err := h.engine.Baskets.GetCurrent(h.ctx(c), h.asOf(reqData.AsOf))
	if err != nil {
		return h.fail(c, err, "fetch current basket")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Current basket fetched!", basket)
}

// AddBasketItem appends a product line
func (h *Handler) AddBasketItem(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedBasketItem").(*distributionValidator.BasketItem)
	if !ok {
		return invalidRequest(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	basket, err := h.engine.Baskets.AddItem(h.ctx(c), id, itemInputs([]distributionValidator.BasketItem{*reqData})[0])
	if err != nil {
		return h.fail(c, err, "add item")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Item added!", basket)
}

// RemoveBasketItem drops a product line
func (h *Handler) RemoveBasketItem(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}
	productID, ok := paramID(c, "productId")
	if !ok {
		return invalidID(c, "product id")
	}

	basket, err := h.engine.Baskets.RemoveItem(h.ctx(c), id, productID)
	if err != nil {
		return h.fail(c, err, "remove item")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Item removed!", basket)
}

// PublishBasket makes a basket visible and opens its roster
func (h *Handler) PublishBasket(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	basket, err := h.engine.Baskets.Publish(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "publish basket")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Basket published!", basket)
}

// UnpublishBasket hides a basket nobody picked up yet
func (h *Handler) UnpublishBasket(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	basket, err := h.engine.Baskets.Unpublish(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "unpublish basket")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Basket unpublished!", basket)
}

// DuplicateBasket copies a basket into a new draft week
func (h *Handler) DuplicateBasket(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedDuplicateBasket").(*distributionValidator.DuplicateBasketRequest)
	if !ok {
		return invalidRequest(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	basket, err := h.engine.Baskets.Duplicate(h.ctx(c), id, reqData.WeekNumber, reqData.Year, reqData.Date)
	if err != nil {
		return h.fail(c, err, "duplicate basket")
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Basket duplicated!", basket)
}

// DeleteBasket removes a basket without pickup records
func (h *Handler) DeleteBasket(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	if err := h.engine.Baskets.Delete(h.ctx(c), id); err != nil {
		return h.fail(c, err, "delete basket")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Basket deleted!", nil)
}

// GetRoster returns the sign-off sheet of a basket
func (h *Handler) GetRoster(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	roster, err := h.engine.Roster.ComputeRosterByID(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "compute roster")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Roster computed!", fiber.Map{
		"basketId": id,
		"total":    len(roster),
		"entries":  roster,
	})
}
