package handlers

import (
	"errors"

	"salary_portal/services"
	"salary_portal/types"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	DB     *gorm.DB
	Salary *services.SalaryService
	Audit  *services.AuditService
)

func InitHandlers(db *gorm.DB) {
	DB = db
	Salary = services.NewSalaryService(db)
	Audit = services.NewAuditService(db)
}

// actorFromContext reads the authenticated user id set by the auth
// middleware. Nil when the request is unauthenticated (system action).
func actorFromContext(c *fiber.Ctx) *uint {
	raw := c.Locals("user_id")
	if raw == nil {
		return nil
	}
	// JWT claims decode numbers as float64.
	if f, ok := raw.(float64); ok {
		id := uint(f)
		return &id
	}
	if id, ok := raw.(uint); ok {
		return &id
	}
	return nil
}

// validationStatus maps a service error to an HTTP status and message:
// known validation errors carry their specific reason, anything else is a
// generic database error.
func validationStatus(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrRecordNotFound):
		return 404, err.Error()
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrUnsupportedCurrency),
		errors.Is(err, types.ErrSalaryOutOfBounds),
		errors.Is(err, types.ErrInvalidCommission),
		errors.Is(err, types.ErrEmptyReason):
		return 400, err.Error()
	}
	return 500, types.ErrDatabaseError
}

func failValidation(c *fiber.Ctx, err error) error {
	status, message := validationStatus(err)
	return c.Status(status).JSON(types.APIResponse{
		Success: false,
		Error:   message,
	})
}
