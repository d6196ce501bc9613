package distributionRoutes

import (
	distributionController "amap/controllers/distribution"
	"amap/middleware"
	"amap/models"
	distributionValidator "amap/validators/distribution"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes sets up the back-office routes for subscriptions,
// weekly baskets and pickups
func SetupAdminRoutes(app *fiber.App, h *distributionController.Handler) {
	adminGroup := app.Group("/admin/amap", middleware.JWTMiddleware, middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

	// Subscriptions
	subs := adminGroup.Group("/subscriptions")
	subs.Post("/", distributionValidator.CreateSubscription(), h.CreateSubscription)
	subs.Get("/", distributionValidator.ListSubscriptions(), h.ListSubscriptions)
	subs.Post("/sync", distributionValidator.SyncStatuses(), h.SyncStatuses)
	subs.Get("/:id", h.GetSubscription)
	subs.Delete("/:id", h.DeleteSubscription)
	subs.Post("/:id/activate", h.ActivateSubscription)
	subs.Post("/:id/pause", distributionValidator.PauseSubscription(), h.PauseSubscription)
	subs.Post("/:id/resume", h.ResumeSubscription)
	subs.Post("/:id/cancel", distributionValidator.CancelSubscription(), h.CancelSubscription)
	subs.Post("/:id/payment", distributionValidator.RecordPayment(), h.RecordPayment)
	subs.Get("/:id/pauses", h.ListPauses)
	subs.Delete("/:id/pauses/:pauseId", h.RemovePause)
	subs.Get("/:id/history", h.GetHistory)
	subs.Get("/:id/status", distributionValidator.StatusAt(), h.GetEffectiveStatus)
	subs.Get("/:id/pickups", h.GetMemberPickups)

	// Weekly baskets (current MUST come before /:id)
	baskets := adminGroup.Group("/baskets")
	baskets.Post("/", distributionValidator.ComposeBasket(), h.ComposeBasket)
	baskets.Get("/", distributionValidator.ListBaskets(), h.ListBaskets)
	baskets.Get("/current", distributionValidator.StatusAt(), h.GetCurrentBasket)
	baskets.Get("/:id", h.GetBasket)
	baskets.Delete("/:id", h.DeleteBasket)
	baskets.Post("/:id/items", distributionValidator.AddBasketItem(), h.AddBasketItem)
	baskets.Delete("/:id/items/:productId", h.RemoveBasketItem)
	baskets.Post("/:id/publish", h.PublishBasket)
	baskets.Post("/:id/unpublish", h.UnpublishBasket)
	baskets.Post("/:id/duplicate", distributionValidator.DuplicateBasket(), h.DuplicateBasket)

	// Distribution day
	baskets.Get("/:id/roster", h.GetRoster)
	baskets.Get("/:id/stats", h.GetStats)
	baskets.Get("/:id/pickups", h.ListPickups)
	baskets.Put("/:id/pickups/:subscriptionId", distributionValidator.MarkPickup(), h.MarkPickup)
	baskets.Patch("/:id/pickups/:subscriptionId/state", distributionValidator.SetPickupState(), h.SetPickupState)
	baskets.Patch("/:id/pickups/:subscriptionId/note", distributionValidator.SetPickupNote(), h.SetPickupNote)
}

// SetupPublicRoutes sets up the member-facing routes
func SetupPublicRoutes(app *fiber.App, h *distributionController.Handler) {
	publicGroup := app.Group("/amap")

	publicGroup.Get("/basket/current", distributionValidator.StatusAt(), h.GetCurrentBasket)
}
