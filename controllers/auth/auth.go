package authController

import (
	"amap/middleware"
	"amap/models"
	"amap/utils"
	authValidator "amap/validators/auth"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxFailedLogins = 3
	// failed attempts older than this no longer count
	failedLoginWindow = 15 * time.Minute
	loginBlock        = 15 * time.Minute
)

// Handler serves back-office authentication. Only ADMIN and SUPER-ADMIN
// members can log in.
type Handler struct {
	db        *gorm.DB
	saltRound int
	logger    *zap.Logger
}

func NewHandler(db *gorm.DB, saltRound int, logger *zap.Logger) *Handler {
	return &Handler{db: db, saltRound: saltRound, logger: logger}
}

func isBackOffice(role string) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return c.IP()
}

func (h *Handler) internalError(c *fiber.Ctx, err error, action string) error {
	h.logger.Error("auth request failed",
		zap.String("action", action),
		zap.Any("requestId", c.Locals("requestId")),
		zap.Error(err),
	)
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
}

// Login checks the password of a back-office member and returns a JWT.
// Three wrong passwords within 15 minutes block the account for 15 minutes.
func (h *Handler) Login(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedLogin").(*authValidator.LoginRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var member models.Member
	if err := h.db.Where("email = ?", reqData.Email).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
		}
		return h.internalError(c, err, "login")
	}
	if !isBackOffice(member.Role) || member.Password == "" {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	now := time.Now()
	if member.BlockedUntil != nil && member.BlockedUntil.After(now) {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Your account is temporarily blocked. Try again later.", nil)
	}
	if member.LastFailedLogin != nil && now.Sub(*member.LastFailedLogin) > failedLoginWindow {
		member.FailedLoginAttempts = 0
	}

	if !utils.CheckPassword(member.Password, reqData.Password) {
		member.FailedLoginAttempts++
		member.LastFailedLogin = &now
		if member.FailedLoginAttempts >= maxFailedLogins {
			until := now.Add(loginBlock)
			member.BlockedUntil = &until
			h.logger.Warn("back-office account blocked", zap.Uint("memberId", member.ID), zap.String("ip", clientIP(c)))
		}
		err := h.db.Model(&member).Updates(map[string]interface{}{
			"failed_login_attempts": member.FailedLoginAttempts,
			"last_failed_login":     member.LastFailedLogin,
			"blocked_until":         member.BlockedUntil,
		}).Error
		if err != nil {
			h.logger.Error("failed to record login failure", zap.Uint("memberId", member.ID), zap.Error(err))
		}
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	ip := clientIP(c)
	err := h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&member).Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"last_failed_login":     nil,
			"blocked_until":         nil,
			"last_login":            now,
		}).Error
		if err != nil {
			return err
		}
		return tx.Create(&models.LoginTracking{
			MemberID:  member.ID,
			IPAddress: ip,
			Device:    c.Get("User-Agent"),
			Timestamp: now,
		}).Error
	})
	if err != nil {
		// the login itself still succeeds
		h.logger.Error("failed to save login tracking", zap.Uint("memberId", member.ID), zap.Error(err))
	}
	member.LastLogin = &now

	token, err := middleware.GenerateJWT(member.ID, member.FirstName+" "+member.LastName, member.Role, member.Email)
	if err != nil {
		return h.internalError(c, err, "generate token")
	}

	h.logger.Info("back-office login", zap.Uint("memberId", member.ID), zap.String("ip", ip))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"member": member,
		"token":  token,
	})
}

// LoginHistory lists the caller's own logins, newest first
func (h *Handler) LoginHistory(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData, ok := c.Locals("validatedLoginHistory").(*authValidator.LoginHistoryRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var (
		logins []models.LoginTracking
		total  int64
	)
	if err := h.db.Model(&models.LoginTracking{}).Where("member_id = ?", userID).Count(&total).Error; err != nil {
		return h.internalError(c, err, "count logins")
	}
	err := h.db.Where("member_id = ?", userID).
		Order("timestamp DESC").Order("id DESC").
		Offset((reqData.Page - 1) * reqData.Limit).
		Limit(reqData.Limit).
		Find(&logins).Error
	if err != nil {
		return h.internalError(c, err, "list logins")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login history fetched!", fiber.Map{
		"logins": logins,
		"pagination": fiber.Map{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
		},
	})
}

// ChangeLoginPassword replaces the caller's password after checking the current one
func (h *Handler) ChangeLoginPassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData, ok := c.Locals("validatedChangePassword").(*authValidator.ChangePasswordRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var member models.Member
	if err := h.db.First(&member, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
		}
		return h.internalError(c, err, "load member")
	}
	if !utils.CheckPassword(member.Password, reqData.CurrentPassword) {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Current password is incorrect!", nil)
	}

	hashed, err := utils.HashPassword(reqData.NewPassword, h.saltRound)
	if err != nil {
		return h.internalError(c, err, "hash password")
	}
	if err := h.db.Model(&member).Update("password", hashed).Error; err != nil {
		return h.internalError(c, err, "update password")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password changed successfully.", nil)
}

// RegisterAdmin gives back-office access to a member. An existing member
// with the same email is promoted, otherwise a new member is created.
func (h *Handler) RegisterAdmin(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedRegisterAdmin").(*authValidator.RegisterAdminRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	hashed, err := utils.HashPassword(reqData.Password, h.saltRound)
	if err != nil {
		return h.internalError(c, err, "hash password")
	}

	var (
		member  models.Member
		created bool
	)
	err = h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", reqData.Email).First(&member).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			member = models.Member{
				FirstName: reqData.FirstName,
				LastName:  reqData.LastName,
				Email:     reqData.Email,
				Mobile:    reqData.Mobile,
				Role:      reqData.Role,
				Password:  hashed,
			}
			return tx.Create(&member).Error
		case err != nil:
			return err
		}

		member.Role = reqData.Role
		member.Password = hashed
		return tx.Model(&member).Updates(map[string]interface{}{
			"role":     member.Role,
			"password": member.Password,
		}).Error
	})
	if err != nil {
		return h.internalError(c, err, "register admin")
	}

	if created {
		return middleware.JsonResponse(c, fiber.StatusCreated, true, "Admin registered successfully.", member)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Member promoted to "+member.Role+".", member)
}
