package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/redis/go-redis/v9"
)

// DefaultBackorderChannel 缺货信号发布通道
const DefaultBackorderChannel = "erp:backorder-signals"

// RedisBackorderPublisher 将缺货信号发布到redis通道，由下游补货/通知消费
type RedisBackorderPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBackorderPublisher(rdb *redis.Client, channel string) *RedisBackorderPublisher {
	if channel == "" {
		channel = DefaultBackorderChannel
	}
	return &RedisBackorderPublisher{rdb: rdb, channel: channel}
}

func (p *RedisBackorderPublisher) Publish(ctx context.Context, signal entity.BackorderSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("序列化缺货信号失败: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("发布缺货信号失败: %w", err)
	}
	return nil
}
