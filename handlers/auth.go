package handlers

import (
	"time"

	"salary_portal/config"
	"salary_portal/models"
	"salary_portal/types"
	"salary_portal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by email and password and issues a JWT carrying the
// user id and role.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrInvalidInput,
		})
	}

	var user models.User
	if err := DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(401).JSON(types.APIResponse{
				Success: false,
				Error:   "Invalid credentials",
			})
		}
		utils.Logger.Error("Failed to look up user for login", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return c.Status(401).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid credentials",
		})
	}

	expiry, err := time.ParseDuration(config.AppConfig.TokenExpiryDuration)
	if err != nil {
		expiry = 24 * time.Hour
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		utils.Logger.Error("Failed to sign token", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrInternalError,
		})
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Data: fiber.Map{
			"token": signed,
			"user":  user,
		},
	})
}
