package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/session"
	"github.com/cory-johannsen/questweaver/internal/narrator"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dice.ErrInvalidNotation),
		errors.Is(err, narrator.ErrBadRequest),
		errors.Is(err, session.ErrInvalidAction),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotPlayerTurn),
		errors.Is(err, session.ErrEnemyTurnInProgress),
		errors.Is(err, session.ErrGameOver),
		errors.Is(err, session.ErrAbilityOnCooldown):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail writes {"error": ...} with the mapped status.
func (r *Router) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
