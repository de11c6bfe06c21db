package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/icedoutskay/grainlify/internal/http/dto"
	"github.com/icedoutskay/grainlify/internal/models"
	"go.uber.org/zap"
)

// respondError maps a domain error to an HTTP status. Unknown errors are
// logged and reported as 500 without leaking internals.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, models.ErrBountyNotFound),
		errors.Is(err, models.ErrScheduleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, models.ErrAlreadyInitialized),
		errors.Is(err, models.ErrNotInitialized),
		errors.Is(err, models.ErrBountyExists),
		errors.Is(err, models.ErrFundsNotLocked),
		errors.Is(err, models.ErrAlreadyReleased),
		errors.Is(err, models.ErrDeadlineNotPassed),
		errors.Is(err, models.ErrTooEarly),
		errors.Is(err, models.ErrDuplicateBatchID):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, models.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidDeadline),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrBatchMismatch),
		errors.Is(err, models.ErrAmountOverflow),
		errors.Is(err, models.ErrMetadataTooLarge):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	log.Error("unhandled service error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
}
