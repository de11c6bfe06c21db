package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/icedoutskay/grainlify/internal/auth"
	"github.com/icedoutskay/grainlify/internal/config"
	"github.com/icedoutskay/grainlify/internal/http/dto"
	"github.com/icedoutskay/grainlify/internal/ton"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const proofNonceKey = "auth:proof:"

// AuthHandler implements TON Connect wallet-proof login. A caller first
// requests a nonce, signs it with their wallet, and exchanges the proof for
// a JWT whose subject is the wallet address.
type AuthHandler struct {
	cfg *config.Config
	rdb *redis.Client
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, rdb *redis.Client, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, rdb: rdb, log: log}
}

// ProofPayload issues a single-use nonce for TON Proof.
// POST /auth/proof-payload
func (h *AuthHandler) ProofPayload(c *fiber.Ctx) error {
	payload := uuid.NewString()
	if err := h.rdb.Set(c.Context(), proofNonceKey+payload, "1", h.cfg.ProofTTL).Err(); err != nil {
		h.log.Error("failed to store proof nonce", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.ProofPayloadResponse{Payload: payload})
}

// WalletAuth verifies a ton_proof signature over a previously issued nonce
// and returns a JWT for the proven wallet address.
// POST /auth/wallet
func (h *AuthHandler) WalletAuth(c *fiber.Ctx) error {
	var req dto.WalletAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Address == "" || req.PublicKey == "" || req.Proof.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, public_key, and proof.signature are required"})
	}

	// Nonce must exist and is consumed on first use.
	nonceKey := proofNonceKey + req.Proof.Payload
	deleted, err := h.rdb.Del(c.Context(), nonceKey).Result()
	if err != nil {
		h.log.Error("failed to check proof nonce", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	if deleted == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unknown or expired proof payload"})
	}

	workchain, addrHash, err := ton.ParseRawAddress(req.Address)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid address"})
	}

	if err := ton.VerifyProof(req.PublicKey, addrHash, workchain, req.Proof, h.cfg.TONProofAllowedDomains); err != nil {
		h.log.Debug("proof verification failed", zap.String("address", req.Address), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "proof verification failed"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, req.Address, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to sign jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.AuthResponse{Token: token, Address: req.Address})
}
