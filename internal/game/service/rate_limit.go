package service

import (
	"context"
	"fmt"
	"strings"

	usermodel "codebattle/internal/user/model"
	appErr "codebattle/pkg/errors"
	"codebattle/pkg/utils/logger"

	"go.uber.org/zap"
)

const rateKeyPrefix = "battle:rate:"

// checkRateLimit applies a fixed window counter per room and player.
// Guests are told apart by client ip. Cache failures let the request through.
func (s *GameService) checkRateLimit(ctx context.Context, roomID, userID, clientIP string) error {
	if s.rateCache == nil || s.rateLimit.Max <= 0 || s.rateLimit.Window <= 0 {
		return nil
	}
	key := rateKey(roomID, userID, clientIP)

	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()
	count, err := s.rateCache.Incr(ctxCache.ctx, key)
	if err != nil {
		logger.Warn(ctx, "rate limit check failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if count == 1 {
		if err := s.rateCache.Expire(ctxCache.ctx, key, s.rateLimit.Window); err != nil {
			logger.Warn(ctx, "rate limit expire failed", zap.String("key", key), zap.Error(err))
		}
	}
	if count > int64(s.rateLimit.Max) {
		s.repairWindow(ctx, ctxCache.ctx, key)
		return appErr.New(appErr.SubmitTooFrequently).WithMessage("submit too frequently")
	}
	return nil
}

// repairWindow restores the expiry of a counter whose first Expire was lost,
// otherwise the pair would stay limited forever.
func (s *GameService) repairWindow(ctx, cacheCtx context.Context, key string) {
	ttl, err := s.rateCache.TTL(cacheCtx, key)
	if err != nil || ttl >= 0 {
		return
	}
	if err := s.rateCache.Expire(cacheCtx, key, s.rateLimit.Window); err != nil {
		logger.Warn(ctx, "rate limit expire repair failed", zap.String("key", key), zap.Error(err))
	}
}

func rateKey(roomID, userID, clientIP string) string {
	player := strings.TrimSpace(userID)
	if usermodel.IsGuest(player) {
		player = "ip:" + strings.TrimSpace(clientIP)
	}
	return fmt.Sprintf("%s%s:%s", rateKeyPrefix, roomID, player)
}
