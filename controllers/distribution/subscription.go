package distributionController

import (
	"amap/middleware"
	"amap/models/distribution"
	"amap/services"
	distributionValidator "amap/validators/distribution"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CreateSubscription registers an approved subscription request as PENDING
func (h *Handler) CreateSubscription(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCreateSubscription").(*distributionValidator.CreateSubscriptionRequest)
	if !ok {
		return invalidRequest(c)
	}

	sub, err := h.engine.Subscriptions.Create(h.ctx(c), services.NewSubscription{
		MemberID:         reqData.MemberID,
		Type:             reqData.Type,
		BasketSize:       reqData.BasketSize,
		PricingType:      reqData.PricingType,
		StartDate:        reqData.Start,
		EndDate:          reqData.End,
		Price:            reqData.Price,
		PickupLocationID: reqData.PickupLocationID,
	})
	if err != nil {
		return h.fail(c, err, "create subscription")
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Subscription created!", sub)
}

// ListSubscriptions returns one page of subscriptions
func (h *Handler) ListSubscriptions(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedListSubscriptions").(*distributionValidator.ListSubscriptionsRequest)
	if !ok {
		return invalidRequest(c)
	}

	filter := services.SubscriptionFilter{
		Status:   distribution.Status(reqData.Status),
		MemberID: reqData.MemberID,
		Page:     reqData.Page,
		Limit:    reqData.Limit,
	}
	subs, total, err := h.engine.Subscriptions.List(h.ctx(c), filter)
	if err != nil {
		return h.fail(c, err, "fetch subscriptions")
	}

	page, limit := reqData.Page, reqData.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscriptions fetched!", fiber.Map{
		"subscriptions": subs,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetSubscription returns one subscription with its pauses and its
// effective status today
func (h *Handler) GetSubscription(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	sub, err := h.engine.Subscriptions.Get(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "fetch subscription")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription fetched!", fiber.Map{
		"subscription":    sub,
		"effectiveStatus": services.ReconcileStatus(sub, h.clock.Today()),
	})
}

// ActivateSubscription confirms a PENDING subscription
func (h *Handler) ActivateSubscription(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	sub, err := h.engine.Subscriptions.Activate(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "activate subscription")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription activated!", sub)
}

// PauseSubscription adds a pause window
func (h *Handler) PauseSubscription(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedPause").(*distributionValidator.PauseRequest)
	if !ok {
		return invalidRequest(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	sub, err := h.engine.Subscriptions.Pause(h.ctx(c), id, reqData.Start, reqData.End, reqData.Reason)
	if err != nil {
		return h.fail(c, err, "pause subscription")
	}

	message := "Subscription paused!"
	if sub.Status != distribution.StatusPaused {
		message = "Pause scheduled!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, sub)
}

// ResumeSubscription ends the pause open today
func (h *Handler) ResumeSubscription(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	sub, err := h.engine.Subscriptions.Resume(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "resume subscription")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription resumed!", sub)
}

// CancelSubscription terminates a subscription
func (h *Handler) CancelSubscription(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCancel").(*distributionValidator.CancelRequest)
	if !ok {
		return invalidRequest(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	sub, err := h.engine.Subscriptions.Cancel(h.ctx(c), id, reqData.Reason)
	if err != nil {
		return h.fail(c, err, "cancel subscription")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription cancelled!", sub)
}

// RecordPayment adds a payment, resolving processor payment ids first. A
// payment id is applied at most once.
func (h *Handler) RecordPayment(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedPayment").(*distributionValidator.PaymentRequest)
	if !ok {
		return invalidRequest(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	var amount float64
	if reqData.Amount != nil {
		amount = *reqData.Amount
	} else {
		if h.payments == nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Payment processor is not configured, send an amount instead!", nil)
		}
		resolved, err := h.payments.AuthorizedAmount(c.UserContext(), reqData.PaymentID)
		if err != nil {
			return h.fail(c, err, "verify payment")
		}
		amount = resolved
		h.logger.Info("payment verified",
			zap.Uint("subscriptionId", id),
			zap.String("paymentId", reqData.PaymentID),
			zap.Float64("amount", amount))
	}

	var (
		sub *distribution.Subscription
		err error
	)
	if reqData.PaymentID != "" {
		sub, err = h.engine.Subscriptions.RecordProcessorPayment(h.ctx(c), id, reqData.PaymentID, amount)
	} else {
		sub, err = h.engine.Subscriptions.RecordPayment(h.ctx(c), id, amount)
	}
	if err != nil {
		return h.fail(c, err, "record payment")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment recorded!", sub)
}

// ListPauses returns the pause windows of a subscription
func (h *Handler) ListPauses(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	if _, err := h.engine.Subscriptions.Get(h.ctx(c), id); err != nil {
		return h.fail(c, err, "fetch pauses")
	}
	windows, err := h.engine.Pauses.ListWindows(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "fetch pauses")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pauses fetched!", windows)
}

// RemovePause deletes a pause window that has not started
func (h *Handler) RemovePause(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}
	pauseID, ok := paramID(c, "pauseId")
	if !ok {
		return invalidID(c, "pause id")
	}

	sub, err := h.engine.Subscriptions.RemovePause(h.ctx(c), id, pauseID)
	if err != nil {
		return h.fail(c, err, "remove pause")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pause removed!", sub)
}

// GetHistory returns the audit trail of a subscription
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	if _, err := h.engine.Subscriptions.Get(h.ctx(c), id); err != nil {
		return h.fail(c, err, "fetch history")
	}
	entries, err := h.engine.Subscriptions.History(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "fetch history")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "History fetched!", entries)
}

// GetEffectiveStatus reconciles a subscription on ?date= (default today)
func (h *Handler) GetEffectiveStatus(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedStatusAt").(*distributionValidator.StatusQuery)
	if !ok {
		return invalidRequest(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	asOf := h.asOf(reqData.AsOf)
	status, err := h.engine.Subscriptions.EffectiveStatus(h.ctx(c), id, asOf)
	if err != nil {
		return h.fail(c, err, "compute status")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Status computed!", fiber.Map{
		"subscriptionId": id,
		"date":           asOf.Format(time.DateOnly),
		"status":         status,
	})
}

// GetMemberPickups returns the pickup ledger of a subscription
func (h *Handler) GetMemberPickups(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	pickups, err := h.engine.Pickups.MemberHistory(h.ctx(c), id)
	if err != nil {
		return h.fail(c, err, "fetch pickups")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pickups fetched!", pickups)
}

// DeleteSubscription removes a subscription without pickup records
func (h *Handler) DeleteSubscription(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "subscription id")
	}

	if err := h.engine.Subscriptions.Delete(h.ctx(c), id); err != nil {
		return h.fail(c, err, "delete subscription")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription deleted!", nil)
}

// SyncStatuses reconciles every open subscription on demand
func (h *Handler) SyncStatuses(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedSync").(*distributionValidator.SyncRequest)
	if !ok {
		return invalidRequest(c)
	}

	asOf := h.asOf(reqData.AsOf)
	changed, err := h.engine.Subscriptions.SyncStatuses(h.ctx(c), asOf)
	if err != nil {
		return h.fail(c, err, "sync statuses")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Statuses synchronized!", fiber.Map{
		"date":    asOf.Format(time.DateOnly),
		"changed": changed,
	})
}
