package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/icedoutskay/grainlify/internal/http/dto"
	"github.com/icedoutskay/grainlify/internal/middleware"
	"github.com/icedoutskay/grainlify/internal/services"
	"go.uber.org/zap"
)

type ScheduleHandler struct {
	scheduleService *services.ScheduleService
	log             *zap.Logger
}

func NewScheduleHandler(scheduleService *services.ScheduleService, log *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService, log: log}
}

func parseScheduleKey(c *fiber.Ctx) (bountyID, scheduleID uint64, err error) {
	bountyID, err = strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	scheduleID, err = strconv.ParseUint(c.Params("sid"), 10, 64)
	return bountyID, scheduleID, err
}

// Create adds a release schedule to a locked escrow. Depositor or admin.
// POST /bounties/:id/schedules
func (h *ScheduleHandler) Create(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}
	var req dto.CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Recipient == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "recipient is required"})
	}

	caller := middleware.GetCaller(c)
	schedule, err := h.scheduleService.Create(c.Context(), caller, bountyID, req.Amount, req.ReleaseAt, req.Recipient)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: schedule})
}

// ReleaseManual triggers a schedule early or on time. Admin only.
// POST /bounties/:id/schedules/:sid/release
func (h *ScheduleHandler) ReleaseManual(c *fiber.Ctx) error {
	bountyID, scheduleID, err := parseScheduleKey(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid schedule key"})
	}

	caller := middleware.GetCaller(c)
	if err := h.scheduleService.ReleaseManual(c.Context(), caller, bountyID, scheduleID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// ReleaseAutomatic triggers a due schedule. Any caller.
// POST /bounties/:id/schedules/:sid/release-auto
func (h *ScheduleHandler) ReleaseAutomatic(c *fiber.Ctx) error {
	bountyID, scheduleID, err := parseScheduleKey(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid schedule key"})
	}

	caller := middleware.GetCaller(c)
	if err := h.scheduleService.ReleaseAutomatic(c.Context(), caller, bountyID, scheduleID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Get returns a single schedule.
// GET /bounties/:id/schedules/:sid
func (h *ScheduleHandler) Get(c *fiber.Ctx) error {
	bountyID, scheduleID, err := parseScheduleKey(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid schedule key"})
	}

	schedule, err := h.scheduleService.Get(c.Context(), bountyID, scheduleID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: schedule})
}

// ListAll returns every schedule of a bounty in creation order.
// GET /bounties/:id/schedules
func (h *ScheduleHandler) ListAll(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	schedules, err := h.scheduleService.ListAll(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: schedules})
}

// GetPending returns unreleased schedules.
// GET /bounties/:id/schedules/pending
func (h *ScheduleHandler) GetPending(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	schedules, err := h.scheduleService.GetPending(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: schedules})
}

// GetDue returns unreleased schedules whose timestamp has been reached.
// GET /bounties/:id/schedules/due
func (h *ScheduleHandler) GetDue(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	schedules, err := h.scheduleService.GetDue(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: schedules})
}

// GetHistory returns completed releases in release order.
// GET /bounties/:id/schedules/history
func (h *ScheduleHandler) GetHistory(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	history, err := h.scheduleService.GetHistory(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: history})
}
