package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"adcards/internal/auth"
	"adcards/internal/config"
	"adcards/internal/errors"
	"adcards/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	cardHandler *handler.CardHandler,
	ledgerHandler *handler.LedgerHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Card and ledger routes require a JWT plus an allowed role.
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
	}), requireCardRole)

	secured.GET("/cards", cardHandler.ListCards)
	secured.POST("/cards", cardHandler.CreateCard)
	secured.PUT("/cards/:id", cardHandler.UpdateCard)
	secured.DELETE("/cards/:id", cardHandler.DeleteCard)

	secured.POST("/cards/topup", ledgerHandler.TopUp)
	secured.POST("/cards/charge", ledgerHandler.Charge)
	secured.GET("/cards/:id/ledger", ledgerHandler.Ledger)
}

// requireCardRole rejects operators whose role the guard does not allow
// and exposes the actor identity to handlers. The ledger core itself
// never sees tokens.
func requireCardRole(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid token",
				Code:  "INVALID_TOKEN",
			})
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid token claims",
				Code:  "INVALID_TOKEN",
			})
		}

		role, _ := claims["role"].(string)
		if !auth.RoleAllows(role) {
			httpErr := errors.MapErrorToHTTP(errors.ErrForbidden)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}

		rawID, _ := claims["operator_id"].(string)
		operatorID, err := uuid.Parse(rawID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid operator identity",
				Code:  "INVALID_TOKEN",
			})
		}

		c.Set(handler.ContextOperatorID, operatorID)
		c.Set(handler.ContextOperatorRole, role)
		return next(c)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
