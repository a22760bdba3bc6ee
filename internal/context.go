package internal

import (
	"context"

	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
)

type ctxKey string

const (
	ContextOperatorKey ctxKey = "operator"
	ContextClientIPKey ctxKey = "client_ip"
)

func ContextWithOperator(ctx context.Context, op *operator.Operator) context.Context {
	return context.WithValue(ctx, ContextOperatorKey, op)
}

func OperatorFromContext(ctx context.Context) (*operator.Operator, bool) {
	if ctx == nil {
		return nil, false
	}
	op, ok := ctx.Value(ContextOperatorKey).(*operator.Operator)
	return op, ok && op != nil
}

func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextClientIPKey, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if ip, ok := ctx.Value(ContextClientIPKey).(string); ok {
		return ip
	}
	return ""
}
