package handlers

import (
	"strconv"

	"salary_portal/currency"
	"salary_portal/services"
	"salary_portal/types"
	"salary_portal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SalaryRequest struct {
	LocalAmount  float64  `json:"local_amount" validate:"required,gt=0"`
	CurrencyCode string   `json:"currency_code"`
	Commission   *float64 `json:"commission,omitempty"`
	Reason       string   `json:"reason" validate:"required"`
}

type CommissionRequest struct {
	Commission float64 `json:"commission" validate:"gte=0"`
	Reason     string  `json:"reason"`
}

type BulkSalaryRequest struct {
	Updates []services.BulkSalaryUpdate `json:"updates" validate:"required"`
}

// SubmitSalary lets the authenticated user submit or revise their own
// salary; the actor on the ledger entry is the user themselves.
func SubmitSalary(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor == nil {
		return c.Status(401).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrUnauthorized,
		})
	}

	var req SalaryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrInvalidInput,
		})
	}
	if req.Reason == "" {
		req.Reason = "Salary submission"
	}

	record, err := Salary.CreateOrUpdateSalary(*actor, req.LocalAmount, req.CurrencyCode, req.Commission, req.Reason, actor)
	if err != nil {
		return failValidation(c, err)
	}

	if err := Audit.Record("salary_submitted", "salary_record", strconv.FormatUint(uint64(record.ID), 10), actor, nil); err != nil {
		utils.Logger.Error("Failed to record salary submission audit entry", zap.Error(err))
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Message: "Salary saved successfully",
		Data:    record,
	})
}

// UpdateUserSalary is the admin path for setting any user's salary.
func UpdateUserSalary(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid user ID",
		})
	}

	var req SalaryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrInvalidInput,
		})
	}

	record, err := Salary.CreateOrUpdateSalary(uint(userID), req.LocalAmount, req.CurrencyCode, req.Commission, req.Reason, actorFromContext(c))
	if err != nil {
		return failValidation(c, err)
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Message: "Salary updated successfully",
		Data:    record,
	})
}

func UpdateUserCommission(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid user ID",
		})
	}

	var req CommissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrInvalidInput,
		})
	}

	record, err := Salary.UpdateCommission(uint(userID), req.Commission, actorFromContext(c), req.Reason)
	if err != nil {
		return failValidation(c, err)
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Message: "Commission updated successfully",
		Data:    record,
	})
}

// BulkUpdateSalaries applies each item independently and reports per-item
// results plus aggregate counts. Item failures do not fail the request.
func BulkUpdateSalaries(c *fiber.Ctx) error {
	var req BulkSalaryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrInvalidInput,
		})
	}
	if len(req.Updates) == 0 {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "No updates provided",
		})
	}

	results := Salary.BulkUpdateSalaries(req.Updates, actorFromContext(c))

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Data: fiber.Map{
			"results":   results,
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
		},
	})
}

func GetSalaryStatistics(c *fiber.Ctx) error {
	stats, err := Salary.GetSalaryStatistics()
	if err != nil {
		utils.Logger.Error("Failed to compute salary statistics", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Data:    stats,
	})
}

func GetSupportedCurrencies(c *fiber.Ctx) error {
	return c.JSON(types.APIResponse{
		Success: true,
		Data: fiber.Map{
			"currencies": currency.SupportedCurrencies(),
			"rates":      currency.Rates(),
		},
	})
}
