package observer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	ModePush = "push"
	ModePoll = "poll"
)

// Event 房间提交后发出的变更通知
type Event struct {
	RoomID  string `json:"room_id"`
	Version int64  `json:"version"`
	Reason  string `json:"reason"`
}

// Observer 阻塞直到 ctx 结束，每次房间变化回调 fn
type Observer interface {
	Watch(ctx context.Context, roomID string, fn func(Event)) error
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// VersionSource 轮询模式读取房间版本
type VersionSource interface {
	RoomVersion(ctx context.Context, roomID string) (int64, error)
}

// New 按模式选择推送或轮询；推送在有 Redis 时走 pub/sub，否则走进程内总线
func New(mode string, rdb *redis.Client, src VersionSource, interval time.Duration, logger *log.Logger) (Observer, Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModePush:
		if rdb != nil {
			p := NewRedisPubSub(rdb, logger)
			return p, p, nil
		}
		b := NewLocalBus()
		return b, b, nil
	case ModePoll:
		if src == nil {
			return nil, nil, fmt.Errorf("poll observer needs a version source")
		}
		return NewPoller(src, interval, logger), NopPublisher{}, nil
	default:
		return nil, nil, fmt.Errorf("invalid observer mode %q (supported: %s, %s)", mode, ModePush, ModePoll)
	}
}

// NopPublisher 轮询模式下提交无需通知
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
