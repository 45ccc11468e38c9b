package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
)

// TokenSource issues a fresh bearer token.
type TokenSource func(ctx context.Context) (string, error)

// BearerStrategy sends "authorization: Bearer <token>". The token is either
// fixed or renewed through a TokenSource on Refresh.
type BearerStrategy struct {
	base   *StaticStrategy
	source TokenSource

	mu    sync.RWMutex
	token string
}

// Bearer returns a strategy sending a fixed token.
func Bearer(appID, token string) *BearerStrategy {
	return &BearerStrategy{base: None(appID), token: token}
}

// BearerFrom returns a strategy whose token is obtained from src on the
// first Refresh and renewed on every later Refresh.
func BearerFrom(appID string, src TokenSource) *BearerStrategy {
	return &BearerStrategy{base: None(appID), source: src}
}

// Refresh renews the token when the strategy has a TokenSource.
func (b *BearerStrategy) Refresh(ctx context.Context) error {
	if b.source == nil {
		return nil
	}
	token, err := b.source(ctx)
	if err != nil {
		return fmt.Errorf("refresh bearer token: %w", err)
	}
	if token == "" {
		return errors.New("refresh bearer token: empty token")
	}
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
	zap.L().Debug("bearer token refreshed")
	return nil
}

// GRPCMetadata adds the identity headers and, once a token is known, the
// authorization header.
func (b *BearerStrategy) GRPCMetadata(ctx context.Context) context.Context {
	ctx = b.base.GRPCMetadata(ctx)
	b.mu.RLock()
	token := b.token
	b.mu.RUnlock()
	if token == "" {
		return ctx
	}
	return mergeOutgoing(ctx, metadata.Pairs(AuthorizationHeader, "Bearer "+token))
}
