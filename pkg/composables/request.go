package composables

import (
	"context"

	"github.com/orgledger/orgledger/pkg/constants"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}

func UseRequestID(ctx context.Context) string {
	id := ctx.Value(constants.RequestIDKey)
	if id == nil {
		return ""
	}
	return id.(string)
}
