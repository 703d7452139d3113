package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/pkg/logger"
)

// DefaultStoreTimeout bounds every store call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// Runtime carries the collaborators every service shares.
type Runtime struct {
	Logger       *zap.Logger
	StoreTimeout time.Duration
}

func (rt Runtime) normalize() Runtime {
	rt.Logger = logger.OrNop(rt.Logger)
	if rt.StoreTimeout <= 0 {
		rt.StoreTimeout = DefaultStoreTimeout
	}
	return rt
}

// bounded derives a context that expires after the store timeout.
func (rt Runtime) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, rt.StoreTimeout)
}
