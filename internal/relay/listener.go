package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/mindtussle/internal/domain"
	"go.uber.org/zap"
)

// ListenMissionUpdates — "живучая" подписка на пуши миссии через Redis.
// Переподключается при обрыве; onReconnect вызывается после каждой успешной подписки,
// чтобы подписчик синхронизировался (например, сделал обычный READ).
func ListenMissionUpdates(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func(),
	onMessage func(state domain.MissionState),
) {
	for {
		if ctx.Err() != nil {
			return
		}
		pubsub := rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		if onReconnect != nil {
			onReconnect()
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				var state domain.MissionState
				if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
					logger.Error("invalid mission update payload", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				onMessage(state)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
