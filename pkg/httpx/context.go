package httpx

import (
	"context"

	"github.com/aussiebroadwan/conductor/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyScopes ctxKey = "scopes"
	CtxKeyClaims ctxKey = "claims"
)

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}

// ActorFromContext returns the operator name recorded in audit fields, or
// "system" for unauthenticated callers.
func ActorFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims); ok {
		if actor := c.Actor(); actor != "" {
			return actor
		}
	}
	return "system"
}
