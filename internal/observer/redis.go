package observer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

func channel(roomID string) string { return fmt.Sprintf("room:%s:events", roomID) }

// RedisPubSub 跨进程推送
type RedisPubSub struct {
	rdb    *redis.Client
	logger *log.Logger
}

func NewRedisPubSub(rdb *redis.Client, logger *log.Logger) *RedisPubSub {
	return &RedisPubSub{rdb: rdb, logger: logger}
}

func (p *RedisPubSub) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channel(ev.RoomID), b).Err()
}

func (p *RedisPubSub) Watch(ctx context.Context, roomID string, fn func(Event)) error {
	sub := p.rdb.Subscribe(ctx, channel(roomID))
	defer sub.Close()

	// 等订阅确认后再开始接收，避免漏掉紧随其后的发布
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.RoomID != roomID {
				p.logger.Warn("dropping malformed room event", "room", roomID, "payload", msg.Payload)
				continue
			}
			fn(ev)
		}
	}
}
