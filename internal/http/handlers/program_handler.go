package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/icedoutskay/grainlify/internal/http/dto"
	"github.com/icedoutskay/grainlify/internal/middleware"
	"github.com/icedoutskay/grainlify/internal/models"
	"github.com/icedoutskay/grainlify/internal/services"
	"go.uber.org/zap"
)

type ProgramHandler struct {
	programService *services.ProgramService
	log            *zap.Logger
}

func NewProgramHandler(programService *services.ProgramService, log *zap.Logger) *ProgramHandler {
	return &ProgramHandler{programService: programService, log: log}
}

// Init creates the payout pool. First caller wins.
// POST /program/init
func (h *ProgramHandler) Init(c *fiber.Ctx) error {
	var req dto.InitProgramRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.ProgramID == "" || req.AuthorizedKey == "" || req.TokenAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "program_id, authorized_key and token_address are required"})
	}

	if err := h.programService.Init(c.Context(), req.ProgramID, req.AuthorizedKey, req.TokenAddress); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true})
}

// LockFunds records an out-of-band deposit into the pool.
// POST /program/lock-funds
func (h *ProgramHandler) LockFunds(c *fiber.Ctx) error {
	var req dto.LockProgramFundsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCaller(c)
	if err := h.programService.LockFunds(c.Context(), caller, req.Amount); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// BatchPayout pays each recipient its matching amount. Authorized key only.
// POST /program/batch-payout
func (h *ProgramHandler) BatchPayout(c *fiber.Ctx) error {
	var req dto.BatchPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCaller(c)
	if err := h.programService.BatchPayout(c.Context(), caller, req.Recipients, req.Amounts); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BatchResultResponse{Count: len(req.Recipients)}})
}

// SinglePayout pays one recipient. Authorized key only.
// POST /program/payout
func (h *ProgramHandler) SinglePayout(c *fiber.Ctx) error {
	var req dto.SinglePayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Recipient == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "recipient is required"})
	}

	caller := middleware.GetCaller(c)
	if err := h.programService.SinglePayout(c.Context(), caller, req.Recipient, req.Amount); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// GetInfo returns the pool state including payout history.
// GET /program
func (h *ProgramHandler) GetInfo(c *fiber.Ctx) error {
	info, err := h.programService.GetInfo(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: info})
}

// GetRemainingBalance returns the spendable pool balance.
// GET /program/balance
func (h *ProgramHandler) GetRemainingBalance(c *fiber.Ctx) error {
	balance, err := h.programService.GetRemainingBalance(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{Balance: balance}})
}

// GetWithMetadata returns the pool with its metadata.
// GET /program/full
func (h *ProgramHandler) GetWithMetadata(c *fiber.Ctx) error {
	view, err := h.programService.GetWithMetadata(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: view})
}

// GetMetadata returns the program metadata.
// GET /program/metadata
func (h *ProgramHandler) GetMetadata(c *fiber.Ctx) error {
	md, err := h.programService.GetMetadata(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: md})
}

// SetMetadata attaches program metadata. Authorized key only.
// PUT /program/metadata
func (h *ProgramHandler) SetMetadata(c *fiber.Ctx) error {
	var md models.ProgramMetadata
	if err := c.BodyParser(&md); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCaller(c)
	if err := h.programService.SetMetadata(c.Context(), caller, &md); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
