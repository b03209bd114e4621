package handlers

import (
	"time"

	"kantor/internal/middleware"
	"kantor/internal/services/rates"
	"kantor/internal/utils"
	"kantor/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type RatesHandler struct {
	provider rates.Provider
}

func NewRatesHandler(provider rates.Provider) *RatesHandler {
	return &RatesHandler{provider: provider}
}

// CurrentRates returns the bid/ask table currently in effect.
func (h *RatesHandler) CurrentRates(c *fiber.Ctx) error {
	if _, err := middleware.ExtractUserClaims(c); err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	table, err := h.provider.CurrentTable(c.Context())
	if err != nil {
		return utils.BadGateway(c, "rate source unavailable")
	}

	return utils.Success(c, fiber.Map{
		"effectiveDate": table.EffectiveDate,
		"rates":         table.Rates,
	})
}

// HistoricalRates returns a mid-rate series for one currency between two
// dates.
func (h *RatesHandler) HistoricalRates(c *fiber.Ctx) error {
	if _, err := middleware.ExtractUserClaims(c); err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	code := c.Query("code")
	start := c.Query("start")
	end := c.Query("end")
	if !validation.ValidCurrencyCode(code) || !validation.ValidDate(start) || !validation.ValidDate(end) {
		return utils.BadRequest(c, "Required query params: code, start, end")
	}

	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return utils.BadRequest(c, "Invalid start date")
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return utils.BadRequest(c, "Invalid end date")
	}

	series, err := h.provider.HistoricalSeries(c.Context(), code, startDate, endDate)
	if err != nil {
		return utils.BadGateway(c, "rate source unavailable")
	}

	return utils.Success(c, fiber.Map{
		"code":  code,
		"rates": series,
	})
}
