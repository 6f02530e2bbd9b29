package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/session"
	"github.com/cory-johannsen/questweaver/internal/game/state"
	"github.com/cory-johannsen/questweaver/internal/narrator"
)

// sessionView is a snapshot plus the derived fields a client renders.
type sessionView struct {
	ID                  string                `json:"id"`
	State               state.GameState       `json:"state"`
	IsPlayerTurn        bool                  `json:"isPlayerTurn"`
	CurrentTurnEntity   *state.Combatant      `json:"currentTurnEntity,omitempty"`
	QuickActions        []session.QuickAction `json:"quickActions"`
	EnemyTurnInProgress bool                  `json:"enemyTurnInProgress"`
}

func newSessionView(s *session.Session, gs state.GameState) sessionView {
	v := sessionView{
		ID:                  s.ID(),
		State:               gs,
		IsPlayerTurn:        state.IsPlayerTurn(gs),
		QuickActions:        session.QuickActions(gs.Character),
		EnemyTurnInProgress: s.EnemyTurnInProgress(),
	}
	if who, ok := state.CurrentTurnEntity(gs); ok {
		v.CurrentTurnEntity = &who
	}
	return v
}

type sayRequest struct {
	Text string `json:"text" binding:"required"`
}

type rollRequest struct {
	Notation string `json:"notation" binding:"required"`
}

type rollResponse struct {
	Roll      dice.Roll   `json:"roll"`
	Formatted string      `json:"formatted"`
	Session   sessionView `json:"session"`
}

// narrate is the stateless narration route. Backend failures are expected to
// arrive already degraded to narrator.Fallback; an unknown enemy is answered
// with the retry body.
func (r *Router) narrate(c *gin.Context) {
	var req narrator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, fmt.Errorf("%w: %v", narrator.ErrBadRequest, err))
		return
	}
	if err := narrator.Validate(req); err != nil {
		r.fail(c, err)
		return
	}

	ctx, cancel := r.narrationContext(c)
	defer cancel()
	resp, err := r.narrator.Narrate(ctx, req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, narrator.Sanitize(resp))
	case errors.Is(err, narrator.ErrUnknownEnemy):
		r.logger.Error("game action failed",
			zap.Bool("enemy_turn", req.IsEnemyTurn),
			zap.String("enemy_id", req.EnemyID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to process game action",
			"narrative": narrator.RetryNarrative,
			"delta":     gin.H{"turnAdvance": false},
		})
	default:
		r.fail(c, err)
	}
}

func (r *Router) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": r.sessions.IDs()})
}

func (r *Router) createSession(c *gin.Context) {
	s, err := r.sessions.Create(c.Request.Context())
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionView(s, s.Snapshot()))
}

func (r *Router) openSession(c *gin.Context) {
	s, err := r.sessions.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, s.Snapshot()))
}

func (r *Router) getSession(c *gin.Context) {
	s, err := r.sessions.Get(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, s.Snapshot()))
}

func (r *Router) closeSession(c *gin.Context) {
	if err := r.sessions.Close(c.Param("id")); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) playerAction(c *gin.Context) {
	s, err := r.sessions.Get(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	var a session.Action
	if err := c.ShouldBindJSON(&a); err != nil {
		r.fail(c, fmt.Errorf("%w: %v", session.ErrInvalidAction, err))
		return
	}

	ctx, cancel := r.narrationContext(c)
	defer cancel()
	gs, err := s.PlayerAction(ctx, a)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, gs))
}

func (r *Router) say(c *gin.Context) {
	s, err := r.sessions.Get(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	var req sayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, fmt.Errorf("%w: %v", session.ErrInvalidAction, err))
		return
	}

	ctx, cancel := r.narrationContext(c)
	defer cancel()
	gs, err := s.Say(ctx, req.Text)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, gs))
}

func (r *Router) roll(c *gin.Context) {
	s, err := r.sessions.Get(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	var req rollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, fmt.Errorf("%w: %v", dice.ErrInvalidNotation, err))
		return
	}
	roll, gs, err := s.Roll(c.Request.Context(), req.Notation)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rollResponse{
		Roll:      roll,
		Formatted: dice.FormatRollResult(roll),
		Session:   newSessionView(s, gs),
	})
}

func (r *Router) reset(c *gin.Context) {
	s, err := r.sessions.Get(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	gs, err := s.Reset(c.Request.Context())
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, gs))
}
