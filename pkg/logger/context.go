package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type contextKey string

const playerIDKey contextKey = "player_id"

// WithPlayerID 在 context 中携带玩家 ID，日志会自动带上 player_id 字段
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerIDKey, playerID)
}

// DefaultContextExtractor 默认提取器，只提取 player_id
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	if id, ok := ctx.Value(playerIDKey).(string); ok && id != "" {
		return []zap.Field{zap.String("player_id", id)}
	}
	return nil
}
