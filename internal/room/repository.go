//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks

package room

import (
	"context"
	"fmt"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"
)

// ErrVersionConflict 房间在读取之后被别人修改过
var ErrVersionConflict = fmt.Errorf("room version conflict: %w", errs.ErrPersistence)

// Repo 房间 / 玩家 / 边池的存储
type Repo interface {
	CreateRoom(ctx context.Context, r *table.Room) error
	GetRoom(ctx context.Context, roomID string) (*table.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*table.Room, error)
	// AddPlayer 占用座位并使房间版本 +1，座位已被占用时返回规则错误
	AddPlayer(ctx context.Context, p *table.Player) error
	// GetPlayers 按座位号升序
	GetPlayers(ctx context.Context, roomID string) ([]table.Player, error)
	GetSidePots(ctx context.Context, roomID string, round int) ([]table.Pot, error)
	// CreateSidePots 房间版本仍为 version 时才写入，否则返回 ErrVersionConflict
	CreateSidePots(ctx context.Context, roomID string, version int64, round int, pots []table.Pot) error
	// Commit 原子写入 Change，返回新版本号
	Commit(ctx context.Context, c Change) (int64, error)
}
