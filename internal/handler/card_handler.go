package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"adcards/internal/errors"
	"adcards/internal/model"
	"adcards/internal/service"
)

// CardHandler handles card registry endpoints.
type CardHandler struct {
	cardService service.CardService
}

// NewCardHandler creates a new card handler.
func NewCardHandler(cardService service.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// CreateCardRequest represents a card creation request.
type CreateCardRequest struct {
	DisplayName string   `json:"display_name" validate:"required"`
	Last4       string   `json:"last4" validate:"required,len=4,numeric"`
	Status      string   `json:"status" validate:"omitempty,oneof=active inactive"`
	Channels    []string `json:"channels"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
}

// UpdateCardRequest represents a partial card update request.
type UpdateCardRequest struct {
	DisplayName *string   `json:"display_name"`
	Last4       *string   `json:"last4" validate:"omitempty,len=4,numeric"`
	Status      *string   `json:"status" validate:"omitempty,oneof=active inactive"`
	Channels    *[]string `json:"channels"`
}

// DeleteCardResponse represents a card deletion response.
type DeleteCardResponse struct {
	Message string      `json:"message"`
	Card    *model.Card `json:"card"`
}

// ListCards godoc
// @Summary List all cards
// @Description Seeds the default card catalog, then lists all cards ordered by last4.
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Card
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /cards [get]
func (h *CardHandler) ListCards(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.cardService.SeedDefaults(ctx, actorID(c)); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	cards, err := h.cardService.List(ctx)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, cards)
}

// CreateCard godoc
// @Summary Create a card
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCardRequest true "Card data"
// @Success 201 {object} model.Card
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /cards [post]
func (h *CardHandler) CreateCard(c echo.Context) error {
	var req CreateCardRequest
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

	card, err := h.cardService.Create(
		c.Request().Context(),
		req.DisplayName,
		req.Last4,
		req.Channels,
		model.CardStatus(req.Status),
		req.Currency,
		actorID(c),
	)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, card)
}

// UpdateCard godoc
// @Summary Update card metadata
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Card ID"
// @Param request body UpdateCardRequest true "Fields to update"
// @Success 200 {object} model.Card
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /cards/{id} [put]
func (h *CardHandler) UpdateCard(c echo.Context) error {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid card ID",
			Code:  "INVALID_UUID",
		})
	}

	var req UpdateCardRequest
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

	upd := service.CardUpdate{
		DisplayName: req.DisplayName,
		Last4:       req.Last4,
		Channels:    req.Channels,
	}
	if req.Status != nil {
		status := model.CardStatus(*req.Status)
		upd.Status = &status
	}

	card, err := h.cardService.Update(c.Request().Context(), cardID, upd)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, card)
}

// DeleteCard godoc
// @Summary Delete a card and its ledger entries
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param id path string true "Card ID"
// @Success 200 {object} DeleteCardResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /cards/{id} [delete]
func (h *CardHandler) DeleteCard(c echo.Context) error {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid card ID",
			Code:  "INVALID_UUID",
		})
	}

	card, err := h.cardService.Delete(c.Request().Context(), cardID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, DeleteCardResponse{
		Message: "card deleted",
		Card:    card,
	})
}
