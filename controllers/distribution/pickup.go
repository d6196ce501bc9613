package distributionController

import (
	"amap/middleware"
	distributionValidator "amap/validators/distribution"

	"github.com/gofiber/fiber/v2"
)

func pickupParams(c *fiber.Ctx) (basketID, subscriptionID uint, ok bool) {
	if basketID, ok = paramID(c, "id"); !ok {
		return 0, 0, false
	}
	if subscriptionID, ok = paramID(c, "subscriptionId"); !ok {
		return 0, 0, false
	}
	return basketID, subscriptionID, true
}

// MarkPickup records both the pickup state and the note of a roster member
func (h *Handler) MarkPickup(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedMarkPickup").(*distributionValidator.MarkPickupRequest)
	if !ok {
		return invalidRequest(c)
	}
	basketID, subscriptionID, ok := pickupParams(c)
	if !ok {
		return invalidID(c, "basket or subscription id")
	}

	pickup, err := h.engine.Pickups.MarkPickup(h.ctx(c), subscriptionID, basketID, *reqData.WasPickedUp, reqData.Notes)
	if err != nil {
		return h.fail(c, err, "record pickup")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pickup recorded!", pickup)
}

// SetPickupState toggles the pickup state, keeping the note
func (h *Handler) SetPickupState(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedPickupState").(*distributionValidator.PickupStateRequest)
	if !ok {
		return invalidRequest(c)
	}
	basketID, subscriptionID, ok := pickupParams(c)
	if !ok {
		return invalidID(c, "basket or subscription id")
	}

	pickup, err := h.engine.Pickups.SetPickedUp(h.ctx(c), subscriptionID, basketID, *reqData.WasPickedUp)
	if err != nil {
		return h.fail(c, err, "record pickup")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pickup recorded!", pickup)
}

// SetPickupNote replaces the note, keeping the pickup state
func (h *Handler) SetPickupNote(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedPickupNote").(*distributionValidator.PickupNoteRequest)
	if !ok {
		return invalidRequest(c)
	}
	basketID, subscriptionID, ok := pickupParams(c)
	if !ok {
		return invalidID(c, "basket or subscription id")
	}

	pickup, err := h.engine.Pickups.SetNote(h.ctx(c), subscriptionID, basketID, reqData.Notes)
	if err != nil {
		return h.fail(c, err, "record pickup note")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Note saved!", pickup)
}

// GetStats counts pickups against the roster of a basket
func (h *Handler) GetStats(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	stats, err := h.engine.Pickups.GetStats(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "compute stats")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Stats computed!", stats)
}

// ListPickups returns every ledger row of a basket
func (h *Handler) ListPickups(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "basket id")
	}

	if _, err := h.engine.Baskets.Get(h.ctx(c), id); err != nil {
		return h.fail(c, err, "fetch pickups")
	}
	pickups, err := h.engine.Pickups.ListPickups(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "fetch pickups")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pickups fetched!", pickups)
}
