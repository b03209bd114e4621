package handlers

import (
	"errors"

	"kantor/internal/middleware"
	"kantor/internal/services/ledger"
	"kantor/internal/services/rates"
	"kantor/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	ledgerService ledger.Service
}

func NewWalletHandler(ledgerService ledger.Service) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService}
}

// GetWallet returns all of the user's balances; the PLN entry is always
// present.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := middleware.ExtractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balances, err := h.ledgerService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to get wallet")
	}

	return utils.Success(c, fiber.Map{"balances": balances})
}

// TopUpWallet credits the PLN balance.
func (h *WalletHandler) TopUpWallet(c *fiber.Ctx) error {
	claims, err := middleware.ExtractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		AmountPLN float64 `json:"amountPln"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	newBalance, err := h.ledgerService.TopUp(c.Context(), claims.UserID, input.AmountPLN)
	if err != nil {
		return ledgerError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":    "Top up successful",
		"newBalance": newBalance,
	})
}

// ledgerError maps ledger failures onto HTTP statuses.
func ledgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidRequest),
		errors.Is(err, ledger.ErrUnknownCurrency),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return utils.BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		return utils.Conflict(c, err.Error())
	case errors.Is(err, rates.ErrProviderUnavailable):
		return utils.BadGateway(c, "rate source unavailable")
	default:
		return utils.InternalError(c, "operation failed")
	}
}
