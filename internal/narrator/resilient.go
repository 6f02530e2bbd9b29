package narrator

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Resilient wraps a Narrator so that backend failures degrade to Fallback.
// It never retries. Invalid requests, enemy turns naming an unknown enemy
// and cancelled contexts are still reported as errors.
type Resilient struct {
	inner  Narrator
	logger *zap.Logger
}

// NewResilient wraps inner.
//
// Precondition: inner and logger must not be nil.
func NewResilient(inner Narrator, logger *zap.Logger) *Resilient {
	return &Resilient{inner: inner, logger: logger}
}

// Narrate delegates to the wrapped narrator.
//
// Postcondition: Returns the inner response on success; Fallback() with a nil
// error when the backend failed; an error only for ErrBadRequest,
// ErrUnknownEnemy or when ctx is done.
func (r *Resilient) Narrate(ctx context.Context, req Request) (Response, error) {
	if err := Validate(req); err != nil {
		return Response{}, err
	}
	resp, err := r.inner.Narrate(ctx, req)
	if err == nil {
		return Sanitize(resp), nil
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrUnknownEnemy) {
		return Response{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Response{}, ctxErr
	}
	r.logger.Warn("narration failed, using fallback",
		zap.Bool("enemy_turn", req.IsEnemyTurn),
		zap.String("enemy_id", req.EnemyID),
		zap.Error(err),
	)
	return Fallback(), nil
}
