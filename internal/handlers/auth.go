package handlers

import (
	"errors"

	"kantor/internal/middleware"
	"kantor/internal/services/auth"
	"kantor/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterUser creates an account and seeds its PLN balance.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "Email and password are required")
	}

	user, err := h.authService.Register(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return utils.Conflict(c, "User already exists")
		}
		if errors.Is(err, auth.ErrWeakPassword) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalError(c, "Registration failed")
	}

	return utils.Created(c, fiber.Map{
		"message": "Registered successfully",
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// LoginUser handles user authentication and returns JWT tokens.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "Email and password are required")
	}

	user, accessToken, refreshToken, err := h.authService.Login(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return utils.Unauthorized(c, "Invalid email or password")
		}
		return utils.InternalError(c, "Authentication failed")
	}

	return utils.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// RefreshToken exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&input); err != nil || input.RefreshToken == "" {
		return utils.Unauthorized(c, "Refresh token not provided")
	}

	accessToken, refreshToken, err := h.authService.RefreshTokens(input.RefreshToken)
	if err != nil {
		return utils.Unauthorized(c, "Invalid refresh token")
	}

	return utils.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// LogoutUser invalidates all tokens issued to the user so far.
func (h *AuthHandler) LogoutUser(c *fiber.Ctx) error {
	claims, err := middleware.ExtractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.authService.Logout(claims.UserID); err != nil {
		return utils.InternalError(c, "Failed to logout")
	}

	return utils.Success(c, fiber.Map{"message": "Logged out"})
}
