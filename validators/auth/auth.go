package authValidator

import (
	"amap/models"
	"amap/validators"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login validator middleware
func Login() fiber.Handler {
	return validators.Body("validatedLogin", func(r *LoginRequest, _ map[string]string) {
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	})
}

type LoginHistoryRequest struct {
	Page  int `json:"page" query:"page" validate:"gte=0"`
	Limit int `json:"limit" query:"limit" validate:"gte=0,lte=100"`
}

// LoginHistory validates the pagination of the login history
func LoginHistory() fiber.Handler {
	return validators.Query("validatedLoginHistory", func(r *LoginHistoryRequest, _ map[string]string) {
		if r.Page == 0 {
			r.Page = 1
		}
		if r.Limit == 0 {
			r.Limit = 10
		}
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	CnfPassword     string `json:"cnfPassword" validate:"required,eqfield=NewPassword"`
}

// ChangeLoginPassword validator middleware
func ChangeLoginPassword() fiber.Handler {
	return validators.Body[ChangePasswordRequest]("validatedChangePassword", nil)
}

type RegisterAdminRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Mobile    string `json:"mobile" validate:"omitempty,max=20"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Role      string `json:"role" validate:"omitempty,oneof=ADMIN SUPER-ADMIN"`
}

// RegisterAdmin validates a back-office account; role defaults to ADMIN
func RegisterAdmin() fiber.Handler {
	return validators.Body("validatedRegisterAdmin", func(r *RegisterAdminRequest, _ map[string]string) {
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
		if r.Role == "" {
			r.Role = models.RoleAdmin
		}
	})
}
