package handlers

import (
	"strconv"

	"salary_portal/models"
	"salary_portal/types"
	"salary_portal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterUserRequest struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"required,email"`
	LocalAmount  *float64 `json:"local_amount,omitempty"`
	CurrencyCode string   `json:"currency_code"`
	Commission   *float64 `json:"commission,omitempty"`
}

// UserFilters narrows the admin user listing.
type UserFilters struct {
	SalaryFrom float64 `query:"salary_from"`
	SalaryTo   float64 `query:"salary_to"`
	Currency   string  `query:"currency"`
}

// RegisterUser creates a user, or mutates the existing user when the email
// is already taken; duplicate emails never produce a second row. An
// included salary amount goes through the salary service as a system
// action.
func RegisterUser(c *fiber.Ctx) error {
	var req RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrInvalidInput,
		})
	}
	if req.Name == "" || req.Email == "" {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Name and email are required",
		})
	}

	var user models.User
	created := false
	err := DB.Where("email = ?", req.Email).First(&user).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		user = models.User{
			Name:  req.Name,
			Email: req.Email,
			Role:  "employee",
		}
		if err := DB.Create(&user).Error; err != nil {
			utils.Logger.Error("Failed to create user", zap.Error(err))
			return c.Status(500).JSON(types.APIResponse{
				Success: false,
				Error:   types.ErrDatabaseError,
			})
		}
		created = true

	case err != nil:
		utils.Logger.Error("Failed to look up user by email", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})

	default:
		if err := DB.Model(&user).Update("name", req.Name).Error; err != nil {
			utils.Logger.Error("Failed to update user", zap.Error(err))
			return c.Status(500).JSON(types.APIResponse{
				Success: false,
				Error:   types.ErrDatabaseError,
			})
		}
	}

	action := "user_updated"
	message := "User updated successfully"
	if created {
		action = "user_created"
		message = "User registered successfully"
	}
	// The user write is already committed, so its audit entry goes in
	// before the salary is attempted.
	if err := Audit.Record(action, "user", strconv.FormatUint(uint64(user.ID), 10), actorFromContext(c), map[string]interface{}{"email": user.Email}); err != nil {
		utils.Logger.Error("Failed to record user audit entry", zap.Error(err))
	}

	if req.LocalAmount != nil {
		_, err := Salary.CreateOrUpdateSalary(user.ID, *req.LocalAmount, req.CurrencyCode, req.Commission, "Salary submission on registration", nil)
		if err != nil {
			// Partial outcome: the user row stands, only the salary was
			// rejected.
			status, reason := validationStatus(err)
			return c.Status(status).JSON(types.APIResponse{
				Success: false,
				Message: "User saved but salary was rejected",
				Data:    user,
				Error:   reason,
			})
		}
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Message: message,
		Data:    user,
	})
}

func GetAllUsers(c *fiber.Ctx) error {
	var filters UserFilters
	if err := c.QueryParser(&filters); err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid filter parameters",
		})
	}

	query := DB.Model(&models.User{}).Preload("SalaryRecord")

	if filters.SalaryFrom > 0 || filters.SalaryTo > 0 || filters.Currency != "" {
		query = query.Joins("JOIN salary_records ON salary_records.user_id = users.id")
		if filters.SalaryFrom > 0 {
			query = query.Where("salary_records.salary_euros >= ?", filters.SalaryFrom)
		}
		if filters.SalaryTo > 0 {
			query = query.Where("salary_records.salary_euros <= ?", filters.SalaryTo)
		}
		if filters.Currency != "" {
			query = query.Where("salary_records.currency_code = ?", filters.Currency)
		}
	}

	var users []models.User
	if err := query.Distinct().Find(&users).Error; err != nil {
		utils.Logger.Error("Failed to fetch users", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Data:    users,
	})
}

// DeleteUser soft-deletes a user. Salary history is append-only and stays.
func DeleteUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid user ID",
		})
	}

	var user models.User
	if err := DB.First(&user, "id = ?", uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(types.APIResponse{
				Success: false,
				Error:   "User not found",
			})
		}
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})
	}

	if err := DB.Delete(&user).Error; err != nil {
		utils.Logger.Error("Failed to delete user", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})
	}

	if err := Audit.Record("user_deleted", "user", strconv.FormatUint(id, 10), actorFromContext(c), nil); err != nil {
		utils.Logger.Error("Failed to record user deletion audit entry", zap.Error(err))
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Message: "User deleted successfully",
	})
}
