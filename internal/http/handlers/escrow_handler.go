package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/icedoutskay/grainlify/internal/http/dto"
	"github.com/icedoutskay/grainlify/internal/middleware"
	"github.com/icedoutskay/grainlify/internal/models"
	"github.com/icedoutskay/grainlify/internal/services"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, log: log}
}

func parseBountyID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

// Init sets the admin/token configuration. First caller wins.
// POST /escrow/init
func (h *EscrowHandler) Init(c *fiber.Ctx) error {
	var req dto.InitEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.AdminAddress == "" || req.TokenAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "admin_address and token_address are required"})
	}

	if err := h.escrowService.Init(c.Context(), req.AdminAddress, req.TokenAddress); err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true})
}

// Lock creates a locked escrow with the caller as depositor.
// POST /bounties
func (h *EscrowHandler) Lock(c *fiber.Ctx) error {
	var req dto.LockFundsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCaller(c)
	escrow, err := h.escrowService.Lock(c.Context(), caller, req.BountyID, req.Amount, req.Deadline)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// Release pays the full amount to the contributor. Admin only.
// POST /bounties/:id/release
func (h *EscrowHandler) Release(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}
	var req dto.ReleaseFundsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Contributor == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "contributor is required"})
	}

	caller := middleware.GetCaller(c)
	if err := h.escrowService.Release(c.Context(), caller, bountyID, req.Contributor); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Refund returns funds to the depositor after the deadline. Permissionless.
// POST /bounties/:id/refund
func (h *EscrowHandler) Refund(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	caller := middleware.GetCaller(c)
	if err := h.escrowService.Refund(c.Context(), caller, bountyID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// BatchLock locks every item or none.
// POST /bounties/batch-lock
func (h *EscrowHandler) BatchLock(c *fiber.Ctx) error {
	var req dto.BatchLockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	items := make([]services.BatchLockItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = services.BatchLockItem{BountyID: item.BountyID, Amount: item.Amount, Deadline: item.Deadline}
	}

	caller := middleware.GetCaller(c)
	count, err := h.escrowService.BatchLock(c.Context(), caller, items)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.BatchResultResponse{Count: count}})
}

// BatchRelease releases every item or none. Admin only.
// POST /bounties/batch-release
func (h *EscrowHandler) BatchRelease(c *fiber.Ctx) error {
	var req dto.BatchReleaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	items := make([]services.BatchReleaseItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = services.BatchReleaseItem{BountyID: item.BountyID, Contributor: item.Contributor}
	}

	caller := middleware.GetCaller(c)
	count, err := h.escrowService.BatchRelease(c.Context(), caller, items)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BatchResultResponse{Count: count}})
}

// GetEscrow returns the escrow record.
// GET /bounties/:id
func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	escrow, err := h.escrowService.GetEscrow(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// GetWithMetadata returns the escrow with its metadata.
// GET /bounties/:id/full
func (h *EscrowHandler) GetWithMetadata(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	view, err := h.escrowService.GetWithMetadata(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: view})
}

// GetMetadata returns the escrow metadata.
// GET /bounties/:id/metadata
func (h *EscrowHandler) GetMetadata(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	md, err := h.escrowService.GetMetadata(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: md})
}

// SetMetadata attaches metadata. Depositor only.
// PUT /bounties/:id/metadata
func (h *EscrowHandler) SetMetadata(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}
	var md models.EscrowMetadata
	if err := c.BodyParser(&md); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCaller(c)
	if err := h.escrowService.SetMetadata(c.Context(), caller, bountyID, &md); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// GetEvents returns the audit trail for an escrow.
// GET /bounties/:id/events
func (h *EscrowHandler) GetEvents(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bounty id"})
	}

	logs, err := h.escrowService.GetEvents(c.Context(), bountyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

// GetBalance returns the custody account token balance.
// GET /escrow/balance
func (h *EscrowHandler) GetBalance(c *fiber.Ctx) error {
	balance, err := h.escrowService.GetBalance(c.Context())
	if err != nil {
		h.log.Error("balance read failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "balance unavailable"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{Balance: balance}})
}

// GetConfig returns the admin/token configuration.
// GET /escrow/config
func (h *EscrowHandler) GetConfig(c *fiber.Ctx) error {
	cfg, err := h.escrowService.GetConfig(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: cfg})
}
