package middleware

import (
	"amap/config"
	"amap/models"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: "test-secret"}

	app := fiber.New()
	app.Use(RequestID())
	app.Get("/admin", JWTMiddleware, RequireRole(models.RoleAdmin, models.RoleSuperAdmin), func(c *fiber.Ctx) error {
		return JsonResponse(c, fiber.StatusOK, true, "ok", fiber.Map{"userId": c.Locals("userId")})
	})
	return app
}

func TestJWTMiddleware(t *testing.T) {
	app := newApp(t)

	admin, err := GenerateJWT(7, "Claire", models.RoleAdmin, "claire@example.org")
	require.NoError(t, err)
	member, err := GenerateJWT(8, "Paul", models.RoleMember, "paul@example.org")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: fiber.StatusUnauthorized},
		{name: "not bearer", header: "Token " + admin, want: fiber.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", want: fiber.StatusUnauthorized},
		{name: "member role", header: "Bearer " + member, want: fiber.StatusForbidden},
		{name: "admin role", header: "Bearer " + admin, want: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	app := newApp(t)
	token, err := GenerateJWT(7, "Claire", models.RoleAdmin, "claire@example.org")
	require.NoError(t, err)

	config.AppConfig.JWTKey = "rotated"
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	app := newApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
	require.NoError(t, err)
	_, err = uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}
