package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/services"
	"storefront/pkg/logger"
)

// AuthHandler handles HTTP requests for authentication and profile data.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    newValidator(),
		log:         logger.OrNop(log),
	}
}

// RegisterRoutes registers the authentication routes. authRequired guards the profile routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/profile", authRequired, h.HandleGetProfile)
	authRoutes.Put("/profile", authRequired, h.HandleUpdateProfile)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return fail(c, h.log, err)
	}

	user, err := h.authService.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return fail(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return fail(c, h.log, err)
	}

	token, profile, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  profile,
	})
}

// HandleGetProfile returns the caller's profile.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)
	profile, err := h.authService.Profile(c.UserContext(), claims.UserID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(profile)
}

// ProfileRequest represents a partial profile update. Absent fields are unchanged.
type ProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Avatar   *string `json:"avatar"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}

// HandleUpdateProfile applies a partial profile update.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return fail(c, h.log, err)
	}

	claims := middleware.ClaimsFrom(c)
	profile, err := h.authService.UpdateProfile(c.UserContext(), claims.UserID, services.ProfileUpdate{
		Name:     req.Name,
		Phone:    req.Phone,
		Avatar:   req.Avatar,
		Password: req.Password,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(profile)
}
