package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by the router's role middleware.
const (
	ContextOperatorID   = "operator_id"
	ContextOperatorRole = "operator_role"
)

// actorID returns the authenticated operator's ID, or uuid.Nil on
// routes that are not role-guarded.
func actorID(c echo.Context) uuid.UUID {
	if id, ok := c.Get(ContextOperatorID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
