package authRoutes

import (
	authController "amap/controllers/auth"
	"amap/middleware"
	"amap/models"
	authValidator "amap/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, h *authController.Handler) {
	authGroup := app.Group("/auth")

	authGroup.Post("/login", authValidator.Login(), h.Login)
	authGroup.Get("/login/history", middleware.JWTMiddleware, authValidator.LoginHistory(), h.LoginHistory)
	authGroup.Put("/change/login/password", middleware.JWTMiddleware, authValidator.ChangeLoginPassword(), h.ChangeLoginPassword)

	app.Post("/admin/amap/admins",
		middleware.JWTMiddleware,
		middleware.RequireRole(models.RoleSuperAdmin),
		authValidator.RegisterAdmin(),
		h.RegisterAdmin,
	)
}
