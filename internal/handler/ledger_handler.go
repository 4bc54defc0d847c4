package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"adcards/internal/errors"
	"adcards/internal/model"
	"adcards/internal/service"
)

// LedgerHandler handles balance mutation and ledger read endpoints.
type LedgerHandler struct {
	ledgerService service.LedgerService
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// TopUpRequest represents a manual top-up request.
type TopUpRequest struct {
	CardID string `json:"card_id" validate:"required,uuid"`
	Amount string `json:"amount" validate:"required"`
	Note   string `json:"note"`
}

// ChargeRequest represents an ad-spend charge request.
type ChargeRequest struct {
	CardID    string `json:"card_id" validate:"required,uuid"`
	Amount    string `json:"amount" validate:"required"`
	Channel   string `json:"channel"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
}

// MutationResponse represents the result of an accepted balance mutation.
type MutationResponse struct {
	Card   *model.Card        `json:"card"`
	Ledger *model.LedgerEntry `json:"ledger"`
}

// LedgerResponse represents a card with its recent ledger entries.
type LedgerResponse struct {
	Card   *model.Card         `json:"card"`
	Ledger []model.LedgerEntry `json:"ledger"`
}

// TopUp godoc
// @Summary Top up a card
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TopUpRequest true "Top-up data"
// @Success 200 {object} MutationResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /cards/topup [post]
func (h *LedgerHandler) TopUp(c echo.Context) error {
	var req TopUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	cardID, amount, httpErr := parseMutation(req.CardID, req.Amount)
	if httpErr != nil {
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	card, entry, err := h.ledgerService.TopUp(c.Request().Context(), cardID, amount, req.Note, actorID(c))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, MutationResponse{Card: card, Ledger: entry})
}

// Charge godoc
// @Summary Charge ad spend against a card
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChargeRequest true "Charge data"
// @Success 200 {object} MutationResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /cards/charge [post]
func (h *LedgerHandler) Charge(c echo.Context) error {
	var req ChargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	cardID, amount, httpErr := parseMutation(req.CardID, req.Amount)
	if httpErr != nil {
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	card, entry, err := h.ledgerService.Charge(c.Request().Context(), cardID, amount, req.Channel, req.Reference, req.Note, actorID(c))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, MutationResponse{Card: card, Ledger: entry})
}

// Ledger godoc
// @Summary Get a card's recent ledger entries
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param id path string true "Card ID"
// @Success 200 {object} LedgerResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /cards/{id}/ledger [get]
func (h *LedgerHandler) Ledger(c echo.Context) error {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid card ID",
			Code:  "INVALID_UUID",
		})
	}

	card, entries, err := h.ledgerService.RecentEntries(c.Request().Context(), cardID, service.DefaultEntryLimit)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, LedgerResponse{Card: card, Ledger: entries})
}

// parseMutation parses the card id and decimal amount shared by top-up
// and charge requests.
func parseMutation(rawCardID, rawAmount string) (uuid.UUID, decimal.Decimal, *errors.HTTPError) {
	cardID, err := uuid.Parse(rawCardID)
	if err != nil {
		return uuid.Nil, decimal.Zero, errors.NewHTTPError(http.StatusBadRequest, "invalid card_id", "INVALID_UUID")
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return uuid.Nil, decimal.Zero, errors.MapErrorToHTTP(errors.ErrInvalidAmount)
	}
	return cardID, amount, nil
}
