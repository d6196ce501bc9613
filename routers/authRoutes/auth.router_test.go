package authRoutes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"amap/config"
	authController "amap/controllers/auth"
	"amap/database"
	"amap/middleware"
	"amap/models"
	"amap/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type AuthSuite struct {
	suite.Suite

	app   *fiber.App
	db    *gorm.DB
	super models.Member
	jean  models.Member
}

func TestAuthRoutes(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	config.AppConfig = &config.Config{JWTKey: "test-secret"}

	db, err := database.Connect(&config.Config{
		DBDriver: "sqlite",
		DBDsn:    filepath.Join(s.T().TempDir(), "amap.db"),
	})
	s.Require().NoError(err)
	s.db = db

	hashed, err := utils.HashPassword("potager-2024", bcrypt.MinCost)
	s.Require().NoError(err)
	s.super = models.Member{FirstName: "Claire", LastName: "Roux", Email: "claire@example.org", Role: models.RoleSuperAdmin, Password: hashed}
	s.Require().NoError(db.Create(&s.super).Error)
	// a plain member whose password must never open the back office
	s.jean = models.Member{FirstName: "Jean", LastName: "Martin", Email: "jean@example.org", Role: models.RoleMember, Password: hashed}
	s.Require().NoError(db.Create(&s.jean).Error)

	s.app = fiber.New()
	s.app.Use(middleware.RequestID())
	SetupAuthRoutes(s.app, authController.NewHandler(db, bcrypt.MinCost, zap.NewNop()))
}

func (s *AuthSuite) call(method, path, token string, body interface{}) (int, envelope) {
	raw := []byte(nil)
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		s.Require().NoError(err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "amap-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)

	var env envelope
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *AuthSuite) login(email, password string) (int, string) {
	code, env := s.call("POST", "/auth/login", "", fiber.Map{"email": email, "password": password})
	if code != fiber.StatusOK {
		return code, ""
	}
	var data struct {
		Token  string        `json:"token"`
		Member models.Member `json:"member"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Require().NotNil(data.Member.LastLogin)
	return code, data.Token
}

func (s *AuthSuite) TestLogin() {
	code, token := s.login("Claire@Example.org", "potager-2024")
	s.Require().Equal(fiber.StatusOK, code)
	s.NotEmpty(token)

	code, env := s.call("GET", "/auth/login/history", token, nil)
	s.Require().Equal(fiber.StatusOK, code, env.Message)
	var history struct {
		Logins     []models.LoginTracking `json:"logins"`
		Pagination struct {
			Total int64 `json:"total"`
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
		} `json:"pagination"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &history))
	s.Equal(int64(1), history.Pagination.Total)
	s.Equal(1, history.Pagination.Page)
	s.Equal(10, history.Pagination.Limit)
	s.Require().Len(history.Logins, 1)
	s.Equal(s.super.ID, history.Logins[0].MemberID)
	s.Equal("amap-test", history.Logins[0].Device)
}

func (s *AuthSuite) TestLoginRejected() {
	cases := []struct {
		name     string
		email    string
		password string
		code     int
	}{
		{"wrong password", "claire@example.org", "potager-2025", fiber.StatusUnauthorized},
		{"unknown email", "nobody@example.org", "potager-2024", fiber.StatusUnauthorized},
		{"not back-office", "jean@example.org", "potager-2024", fiber.StatusUnauthorized},
		{"invalid email", "claire", "potager-2024", fiber.StatusUnprocessableEntity},
		{"missing password", "claire@example.org", "", fiber.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			code, _ := s.login(tc.email, tc.password)
			s.Equal(tc.code, code)
		})
	}
}

func (s *AuthSuite) TestLoginBlockedAfterFailures() {
	for i := 0; i < 3; i++ {
		code, _ := s.login("claire@example.org", "wrong-password")
		s.Require().Equal(fiber.StatusUnauthorized, code)
	}

	code, env := s.call("POST", "/auth/login", "", fiber.Map{"email": "claire@example.org", "password": "potager-2024"})
	s.Equal(fiber.StatusUnauthorized, code)
	s.Equal("Your account is temporarily blocked. Try again later.", env.Message)

	var stored models.Member
	s.Require().NoError(s.db.First(&stored, s.super.ID).Error)
	s.Equal(3, stored.FailedLoginAttempts)
	s.NotNil(stored.BlockedUntil)
}

func (s *AuthSuite) TestSuccessfulLoginResetsFailures() {
	code, _ := s.login("claire@example.org", "wrong-password")
	s.Require().Equal(fiber.StatusUnauthorized, code)

	code, _ = s.login("claire@example.org", "potager-2024")
	s.Require().Equal(fiber.StatusOK, code)

	var stored models.Member
	s.Require().NoError(s.db.First(&stored, s.super.ID).Error)
	s.Equal(0, stored.FailedLoginAttempts)
	s.Nil(stored.LastFailedLogin)
	s.NotNil(stored.LastLogin)
}

func (s *AuthSuite) TestChangeLoginPassword() {
	_, token := s.login("claire@example.org", "potager-2024")
	s.Require().NotEmpty(token)

	code, env := s.call("PUT", "/auth/change/login/password", token, fiber.Map{
		"currentPassword": "potager-2024",
		"newPassword":     "courges-2025",
		"cnfPassword":     "courges-2026",
	})
	s.Require().Equal(fiber.StatusUnprocessableEntity, code)
	var fields map[string]string
	s.Require().NoError(json.Unmarshal(env.Data, &fields))
	s.Contains(fields, "cnfPassword")

	code, _ = s.call("PUT", "/auth/change/login/password", token, fiber.Map{
		"currentPassword": "potager-2023",
		"newPassword":     "courges-2025",
		"cnfPassword":     "courges-2025",
	})
	s.Equal(fiber.StatusUnauthorized, code)

	code, env = s.call("PUT", "/auth/change/login/password", token, fiber.Map{
		"currentPassword": "potager-2024",
		"newPassword":     "courges-2025",
		"cnfPassword":     "courges-2025",
	})
	s.Require().Equal(fiber.StatusOK, code, env.Message)

	code, _ = s.login("claire@example.org", "potager-2024")
	s.Equal(fiber.StatusUnauthorized, code)
	code, _ = s.login("claire@example.org", "courges-2025")
	s.Equal(fiber.StatusOK, code)
}

func (s *AuthSuite) TestRequiresToken() {
	code, _ := s.call("GET", "/auth/login/history", "", nil)
	s.Equal(fiber.StatusUnauthorized, code)
	code, _ = s.call("POST", "/admin/amap/admins", "", fiber.Map{})
	s.Equal(fiber.StatusUnauthorized, code)
}

func (s *AuthSuite) TestRegisterAdmin() {
	_, superToken := s.login("claire@example.org", "potager-2024")
	s.Require().NotEmpty(superToken)

	code, env := s.call("POST", "/admin/amap/admins", superToken, fiber.Map{
		"firstName": "Paul",
		"lastName":  "Petit",
		"email":     "paul@example.org",
		"password":  "paniers-du-jeudi",
	})
	s.Require().Equal(fiber.StatusCreated, code, env.Message)
	var paul models.Member
	s.Require().NoError(json.Unmarshal(env.Data, &paul))
	s.Equal(models.RoleAdmin, paul.Role)
	s.Empty(paul.Password)

	// ADMIN cannot create other back-office accounts
	_, adminToken := s.login("paul@example.org", "paniers-du-jeudi")
	s.Require().NotEmpty(adminToken)
	code, _ = s.call("POST", "/admin/amap/admins", adminToken, fiber.Map{
		"firstName": "Eve",
		"lastName":  "Blanc",
		"email":     "eve@example.org",
		"password":  "paniers-du-jeudi",
	})
	s.Equal(fiber.StatusForbidden, code)

	// an existing member is promoted in place
	code, env = s.call("POST", "/admin/amap/admins", superToken, fiber.Map{
		"firstName": "Jean",
		"lastName":  "Martin",
		"email":     "jean@example.org",
		"password":  "legumes-de-saison",
	})
	s.Require().Equal(fiber.StatusOK, code, env.Message)

	var count int64
	s.Require().NoError(s.db.Model(&models.Member{}).Where("email = ?", "jean@example.org").Count(&count).Error)
	s.Equal(int64(1), count)

	code, _ = s.login("jean@example.org", "legumes-de-saison")
	s.Equal(fiber.StatusOK, code)
}

func (s *AuthSuite) TestRegisterAdminValidation() {
	_, superToken := s.login("claire@example.org", "potager-2024")
	s.Require().NotEmpty(superToken)

	code, env := s.call("POST", "/admin/amap/admins", superToken, fiber.Map{
		"firstName": "Paul",
		"email":     "paul@example",
		"password":  "short",
		"role":      "MEMBER",
	})
	s.Require().Equal(fiber.StatusUnprocessableEntity, code)
	var fields map[string]string
	s.Require().NoError(json.Unmarshal(env.Data, &fields))
	s.Contains(fields, "lastName")
	s.Contains(fields, "email")
	s.Contains(fields, "password")
	s.Contains(fields, "role")
}
