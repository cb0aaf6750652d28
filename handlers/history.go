package handlers

import (
	"strconv"
	"time"

	"salary_portal/services"
	"salary_portal/types"
	"salary_portal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// historyQueryFromCtx reads from/to (RFC 3339 or YYYY-MM-DD), limit and
// offset query parameters.
func historyQueryFromCtx(c *fiber.Ctx) (services.HistoryQuery, error) {
	var q services.HistoryQuery

	if raw := c.Query("from"); raw != "" {
		parsed, err := parseHistoryDate(raw)
		if err != nil {
			return q, err
		}
		q.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := parseHistoryDate(raw)
		if err != nil {
			return q, err
		}
		q.To = &parsed
	}
	q.Limit = c.QueryInt("limit", 0)
	q.Offset = c.QueryInt("offset", 0)
	return q, nil
}

func parseHistoryDate(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", raw)
}

func GetUserHistory(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid user ID",
		})
	}

	q, err := historyQueryFromCtx(c)
	if err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid date range",
		})
	}

	entries, err := Salary.Ledger.QueryByUser(uint(userID), q)
	if err != nil {
		utils.Logger.Error("Failed to fetch user history", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Data:    entries,
	})
}

func GetActorHistory(c *fiber.Ctx) error {
	actorID, err := strconv.ParseUint(c.Params("actorId"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid actor ID",
		})
	}

	q, err := historyQueryFromCtx(c)
	if err != nil {
		return c.Status(400).JSON(types.APIResponse{
			Success: false,
			Error:   "Invalid date range",
		})
	}

	entries, err := Salary.Ledger.QueryByActor(uint(actorID), q)
	if err != nil {
		utils.Logger.Error("Failed to fetch actor history", zap.Error(err))
		return c.Status(500).JSON(types.APIResponse{
			Success: false,
			Error:   types.ErrDatabaseError,
		})
	}

	return c.JSON(types.APIResponse{
		Success: true,
		Data:    entries,
	})
}
