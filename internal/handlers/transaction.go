package handlers

import (
	"kantor/internal/middleware"
	"kantor/internal/services/ledger"
	"kantor/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	ledgerService ledger.Service
}

func NewTransactionHandler(ledgerService ledger.Service) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

// Exchange converts between PLN and a foreign currency at the current rate.
func (h *TransactionHandler) Exchange(c *fiber.Ctx) error {
	claims, err := middleware.ExtractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Type     string  `json:"type"`
		Currency string  `json:"currency"`
		Amount   float64 `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	record, err := h.ledgerService.Exchange(c.Context(), claims.UserID, input.Type, input.Currency, input.Amount)
	if err != nil {
		return ledgerError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":     "Exchange executed",
		"transaction": record,
	})
}

// ListTransactions returns the user's records, most recent first.
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	claims, err := middleware.ExtractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	transactions, err := h.ledgerService.ListTransactions(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to get transaction history")
	}

	return utils.Success(c, fiber.Map{"transactions": transactions})
}
