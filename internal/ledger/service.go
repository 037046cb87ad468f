package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ChipTracker/internal/game/table"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"

	// DefaultStartingChips 新账户初始筹码
	DefaultStartingChips int64 = 1000
)

// Account 跨房间持久的筹码余额，ID 为小写钱包地址
type Account struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	TotalChips  int64     `json:"total_chips"`
	GamesPlayed int       `json:"games_played"`
	GamesWon    int       `json:"games_won"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Accounts 持久账户余额
type Accounts interface {
	EnsureAccount(ctx context.Context, id, displayName string, startingChips int64) (*Account, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	// SetBalances 在一个事务里写入绝对余额，重复执行结果相同
	SetBalances(ctx context.Context, balances map[string]int64) error
	// AdjustChips 增减余额，结果不低于 0
	AdjustChips(ctx context.Context, id string, delta int64) (int64, error)
	RecordGame(ctx context.Context, id string, won bool) error
}

// History 只追加的动作与转账日志
type History interface {
	RecordAction(ctx context.Context, a table.Action) error
	// ListActions round 为 0 时返回全部轮次，按时间倒序
	ListActions(ctx context.Context, roomID string, round int) ([]table.Action, error)
	RecordTransfer(ctx context.Context, t table.Transfer) error
	ListTransfers(ctx context.Context, roomID string) ([]table.Transfer, error)
}

type Store interface {
	Accounts
	History
	Close() error
}

// New 按模式创建存储：memory | sqlite | postgres
func New(mode, dsn, path string) (Store, string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeMemory, "mem":
		return NewMemoryStore(), ModeMemory, nil
	case ModeSQLite, "local":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, ModeSQLite, err
		}
		return s, ModeSQLite, nil
	case ModePostgres, "postgresql", "db":
		s, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, ModePostgres, err
		}
		return s, ModePostgres, nil
	default:
		return nil, mode, fmt.Errorf("invalid ledger mode %q (supported: %s, %s, %s)", mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}

// NormalizeID 账户 ID 统一小写
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
