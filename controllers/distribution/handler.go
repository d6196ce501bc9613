package distributionController

import (
	"amap/middleware"
	"amap/services"
	"amap/utils"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentResolver turns a processor payment id into the amount it authorized
type PaymentResolver interface {
	AuthorizedAmount(ctx context.Context, paymentID string) (float64, error)
}

// Handler serves the AMAP admin and public endpoints
type Handler struct {
	engine   *services.Engine
	clock    services.Clock
	payments PaymentResolver
	logger   *zap.Logger
}

// NewHandler builds the handler. payments may be nil when no payment
// processor is configured.
func NewHandler(engine *services.Engine, clock services.Clock, payments PaymentResolver, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, clock: clock, payments: payments, logger: logger}
}

// ctx carries the authenticated admin into the audit history
func (h *Handler) ctx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if userID, ok := c.Locals("userId").(uint); ok {
		ctx = services.WithActor(ctx, userID)
	}
	return ctx
}

// asOf falls back to today when the request did not name a date
func (h *Handler) asOf(date time.Time) time.Time {
	if date.IsZero() {
		return h.clock.Today()
	}
	return date
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c *fiber.Ctx, name string) error {
	return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+name+"!", nil)
}

func invalidRequest(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
}

// fail translates engine errors into HTTP responses. Anything that is not
// one of the engine's error kinds is logged and reported as a server error.
func (h *Handler) fail(c *fiber.Ctx, err error, action string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, utils.ErrPaymentNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrDuplicateWeek),
		errors.Is(err, services.ErrInUse):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidWindow),
		errors.Is(err, services.ErrEmptyBasket),
		errors.Is(err, services.ErrSubscriptionNotEligible),
		errors.Is(err, utils.ErrPaymentNotAuthorized):
		status = fiber.StatusUnprocessableEntity
	}

	if status == fiber.StatusInternalServerError {
		requestID, _ := c.Locals("requestId").(string)
		h.logger.Error("request failed",
			zap.String("action", action),
			zap.String("requestId", requestID),
			zap.String("path", c.Path()),
			zap.Error(err))
		return middleware.JsonResponse(c, status, false, "Failed to "+action+"!", nil)
	}
	return middleware.JsonResponse(c, status, false, err.Error(), nil)
}
