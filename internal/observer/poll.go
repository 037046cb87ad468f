package observer

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

const DefaultInterval = 2 * time.Second

// Poller 没有推送通道时按间隔比较房间版本
type Poller struct {
	src      VersionSource
	interval time.Duration
	logger   *log.Logger
}

func NewPoller(src VersionSource, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{src: src, interval: interval, logger: logger}
}

func (p *Poller) Watch(ctx context.Context, roomID string, fn func(Event)) error {
	last, err := p.src.RoomVersion(ctx, roomID)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			v, err := p.src.RoomVersion(ctx, roomID)
			if err != nil {
				p.logger.Warn("poll room version failed", "room", roomID, "err", err)
				continue
			}
			if v != last {
				last = v
				fn(Event{RoomID: roomID, Version: v, Reason: "poll"})
			}
		}
	}
}
