package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"vacuumvp-service/internal/model"
	"vacuumvp-service/pkg/database"
	"vacuumvp-service/pkg/jwtutil"
	"vacuumvp-service/pkg/logger"
	"vacuumvp-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account. Only admins reach this handler; the
// route is guarded by the auth middleware.
func Register(c echo.Context) error {
	log := logger.FromContext(c)

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid register request format", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request format"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email and password are required"})
	}
	if req.Role == "" {
		req.Role = "distributer"
	}

	log.Info("Processing registration request", zap.String("email", req.Email), zap.String("role", req.Role))

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var existing model.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		log.Warn("Registration failed: email already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Email already registered"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Database error while checking email", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to process registration"})
	}

	var role model.Role
	if err := db.Where("role_name = ?", req.Role).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown role: " + req.Role})
		}
		log.Error("Database error while looking up role", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to process registration"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to process registration"})
	}

	user := model.User{
		UserID:   uuid.New(),
		RoleID:   &role.ID,
		Email:    req.Email,
		Password: string(hashed),
		IsActive: true,
	}
	if req.Name != "" {
		user.Name = &req.Name
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = &req.PhoneNumber
	}

	if err := db.Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create user"})
	}

	prometheus.RegisterCounter.Inc()
	log.Info("User registered successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
		zap.String("role", role.RoleName))

	user.Role = &role
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login verifies credentials and issues a JWT carrying the user's role.
func Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid login request format", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request format"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	log.Info("Processing login request", zap.String("email", req.Email))

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	if err := db.Preload("Role").Where("email = ?", req.Email).First(&user).Error; err != nil {
		prometheus.RecordAuthError("user_not_found")
		log.Warn("Login failed: user not found", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
	}

	if !user.IsActive {
		prometheus.RecordAuthError("inactive_account")
		log.Warn("Login failed: account deactivated", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Account is deactivated"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		log.Warn("Login failed: invalid password", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
	}

	roleName := ""
	if user.Role != nil {
		roleName = user.Role.RoleName
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID.String(), roleName)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate token"})
	}

	prometheus.LoginCounter.Inc()
	prometheus.IncreaseActiveTokens()
	log.Info("User logged in successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
		zap.String("role", roleName))

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"message":      "Login successful",
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

// Logout acknowledges the sign-out. Tokens are stateless, so the client
// discards the JWT; the server only adjusts the active token gauge.
func Logout(c echo.Context) error {
	log := logger.FromContext(c)

	if email, ok := c.Get("email").(string); ok {
		log.Info("User logged out", zap.String("email", email))
	}
	prometheus.DecreaseActiveTokens()

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// ForgotPassword accepts a reset request. The response is identical
// whether or not the address exists, to avoid account enumeration.
func ForgotPassword(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request format"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email is required"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err == nil {
		log.Info("Password reset requested", zap.String("email", req.Email))
		// TODO: send the reset email once the mail provider account is set up.
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "If the email exists, a password reset link has been sent",
	})
}
