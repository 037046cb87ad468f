package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"
	"ChipTracker/internal/ledger"
	"ChipTracker/internal/observer"
	"ChipTracker/internal/room"
)

// ErrEngineClosed 引擎已停止接收命令
var ErrEngineClosed = errors.New("engine closed")

// Ledger 引擎需要的账户与日志写入
type Ledger interface {
	GetAccount(ctx context.Context, id string) (*ledger.Account, error)
	SetBalances(ctx context.Context, balances map[string]int64) error
	RecordGame(ctx context.Context, accountID string, won bool) error
	RecordAction(ctx context.Context, a table.Action) error
	RecordTransfer(ctx context.Context, t table.Transfer) error
}

type Options struct {
	MaxAttempts int
	Timeout     time.Duration // 单次尝试内所有存储调用的上限
	Backoff     time.Duration
}

func DefaultOptions() Options {
	return Options{MaxAttempts: 3, Timeout: 3 * time.Second, Backoff: 50 * time.Millisecond}
}

// Mutation 一次提交的全部内容
type Mutation struct {
	Room          table.Room
	Players       []table.Player // 只放有变化的玩家
	ClearSidePots bool
	Actions       []table.Action
	Transfers     []table.Transfer
	Balances      map[string]int64 // account -> 绝对余额，提交前写入
	Games         map[string]bool  // account -> 是否赢
	Reason        string
}

type command struct {
	ctx   context.Context
	run   func(ctx context.Context) error
	reply chan error
}

// Engine 单个房间的串行执行点，所有写操作经由 loop 逐个处理
type Engine struct {
	roomID string
	repo   room.Repo
	ledger Ledger
	pub    observer.Publisher
	opts   Options
	logger *log.Logger

	cmds chan command
	quit chan struct{}
	once sync.Once
}

func NewEngine(roomID string, repo room.Repo, ledger Ledger, pub observer.Publisher, opts Options, logger *log.Logger) *Engine {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if pub == nil {
		pub = observer.NopPublisher{}
	}
	e := &Engine{
		roomID: roomID,
		repo:   repo,
		ledger: ledger,
		pub:    pub,
		opts:   opts,
		logger: logger.With("room", roomID),
		cmds:   make(chan command, 32), // 防止死锁
		quit:   make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *Engine) RoomID() string { return e.roomID }

func (e *Engine) loop() {
	for {
		select {
		case cmd := <-e.cmds:
			if err := cmd.ctx.Err(); err != nil {
				cmd.reply <- err
				continue
			}
			cmd.reply <- cmd.run(cmd.ctx)
		case <-e.quit:
			return
		}
	}
}

func (e *Engine) Close() {
	e.once.Do(func() { close(e.quit) })
}

// do 把 fn 交给 loop 执行并等待结果
func (e *Engine) do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-e.quit:
		return ErrEngineClosed
	default:
	}
	reply := make(chan error, 1)
	select {
	case e.cmds <- command{ctx: ctx, run: fn, reply: reply}:
	case <-e.quit:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-e.quit:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Act 处理一个下注动作
func (e *Engine) Act(ctx context.Context, cmd ActionCommand) (*table.Player, error) {
	var out table.Player
	err := e.do(ctx, func(ctx context.Context) error {
		_, err := e.mutate(ctx, func(r table.Room, players []table.Player) (*Mutation, error) {
			next, p, action, err := Apply(r, players, cmd)
			if err != nil {
				return nil, err
			}
			out = p
			return &Mutation{
				Room:    next,
				Players: []table.Player{p},
				Actions: []table.Action{action},
				Reason:  string(action.Type),
			}, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("action applied", "player", cmd.PlayerID, "action", describe(cmd))
	return &out, nil
}

// Transfer 玩家之间转筹码
func (e *Engine) Transfer(ctx context.Context, cmd TransferCommand) (*table.Transfer, error) {
	var out table.Transfer
	err := e.do(ctx, func(ctx context.Context) error {
		m, err := e.mutate(ctx, func(r table.Room, players []table.Player) (*Mutation, error) {
			from, to, err := Transfer(r, players, cmd)
			if err != nil {
				return nil, err
			}
			return &Mutation{
				Room:    r.Clone(),
				Players: []table.Player{from, to},
				Transfers: []table.Transfer{{
					RoomID:       r.ID,
					FromPlayerID: from.PlayerID,
					ToPlayerID:   to.PlayerID,
					Amount:       cmd.Amount,
				}},
				Reason: "transfer",
			}, nil
		})
		if err == nil {
			out = m.Transfers[0]
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetBlinds 设定 SB/BB 座位
func (e *Engine) SetBlinds(ctx context.Context, cmd BlindsCommand) (*table.Room, error) {
	var out table.Room
	err := e.do(ctx, func(ctx context.Context) error {
		m, err := e.mutate(ctx, func(r table.Room, players []table.Player) (*Mutation, error) {
			next, err := SetBlinds(r, players, cmd)
			if err != nil {
				return nil, err
			}
			return &Mutation{Room: next, Reason: "blinds_set"}, nil
		})
		if err == nil {
			out = m.Room
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CollectBlinds 收盲注开始游戏
func (e *Engine) CollectBlinds(ctx context.Context) (*table.Room, error) {
	var out table.Room
	err := e.do(ctx, func(ctx context.Context) error {
		m, err := e.mutate(ctx, func(r table.Room, players []table.Player) (*Mutation, error) {
			next, ps, actions, err := CollectBlinds(r, players)
			if err != nil {
				return nil, err
			}
			return &Mutation{Room: next, Players: ps, Actions: actions, Reason: "blinds_collected"}, nil
		})
		if err == nil {
			out = m.Room
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Settle 结算本轮并开始下一轮，全部写入在一次提交内完成
func (e *Engine) Settle(ctx context.Context, selections []table.WinnerSelection) (*Outcome, error) {
	var out *Outcome
	err := e.do(ctx, func(ctx context.Context) error {
		_, err := e.mutate(ctx, func(r table.Room, players []table.Player) (*Mutation, error) {
			o, err := Settle(r, players, selections)
			if err != nil {
				return nil, err
			}
			if o.PotMismatch {
				e.logger.Warn("room pot does not match bets, settling by bets", "pot", r.Pot)
			}
			out = o
			balances, games := accountUpdates(players, o)
			return &Mutation{
				Room:          o.Room,
				Players:       o.Players,
				ClearSidePots: true,
				Actions:       append(append([]table.Action(nil), o.Wins...), o.Blinds...),
				Balances:      balances,
				Games:         games,
				Reason:        "settle",
			}, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("round settled", "round", out.SettledRound, "pots", len(out.Pots), "refunded", out.Refunded)
	return out, nil
}

// accountUpdates 绑定账户的玩家：余额取派奖后、下盲注前的筹码
func accountUpdates(before []table.Player, o *Outcome) (map[string]int64, map[string]bool) {
	bet := make(map[string]bool, len(before))
	for _, p := range before {
		bet[p.PlayerID] = p.CurrentBet > 0
	}
	balances := make(map[string]int64)
	games := make(map[string]bool)
	for _, p := range o.Players {
		if p.AccountID == "" {
			continue
		}
		balances[p.AccountID] = p.ChipStack + p.CurrentBet
		if bet[p.PlayerID] {
			games[p.AccountID] = !o.Refunded && o.Winnings[p.PlayerID] > 0
		}
	}
	return balances, games
}

// mutate 读取最新状态、构建变更并以版本号 CAS 提交；冲突或存储故障时有限次重试
func (e *Engine) mutate(ctx context.Context, build func(table.Room, []table.Player) (*Mutation, error)) (*Mutation, error) {
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if attempt > 1 && e.opts.Backoff > 0 {
			select {
			case <-time.After(e.opts.Backoff * time.Duration(attempt-1)):
			case <-ctx.Done():
				return nil, errs.Persistence(ctx.Err(), "room %s: cancelled", e.roomID)
			}
		}

		m, version, err := e.attempt(ctx, build)
		if err == nil {
			e.afterCommit(ctx, m, version)
			return m, nil
		}
		if !errors.Is(err, errs.ErrPersistence) {
			return nil, err
		}
		lastErr = err
		e.logger.Warn("commit attempt failed", "attempt", attempt, "err", err)
	}
	return nil, errs.Persistence(lastErr, "room %s: gave up after %d attempts", e.roomID, e.opts.MaxAttempts)
}

func (e *Engine) attempt(ctx context.Context, build func(table.Room, []table.Player) (*Mutation, error)) (*Mutation, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	r, err := e.repo.GetRoom(ctx, e.roomID)
	if err != nil {
		return nil, 0, storeError(err, "load room %s", e.roomID)
	}
	players, err := e.repo.GetPlayers(ctx, e.roomID)
	if err != nil {
		return nil, 0, storeError(err, "load players of room %s", e.roomID)
	}

	m, err := build(*r, players)
	if err != nil {
		return nil, 0, err
	}
	m.Room.Version = r.Version

	var prior map[string]int64
	if len(m.Balances) > 0 && e.ledger != nil {
		prior, err = e.snapshotBalances(ctx, m)
		if err != nil {
			return nil, 0, err
		}
		if err := e.ledger.SetBalances(ctx, m.Balances); err != nil {
			return nil, 0, storeError(err, "write account balances")
		}
	}

	change := room.Change{Room: m.Room, Players: m.Players}
	if m.ClearSidePots {
		change.ClearSidePotsRound = r.RoundNumber
	}
	version, err := e.repo.Commit(ctx, change)
	if err != nil {
		e.restoreBalances(ctx, prior)
		return nil, 0, storeError(err, "commit room %s", e.roomID)
	}
	m.Room.Version = version
	return m, version, nil
}

// snapshotBalances 记下将被覆盖的余额；不存在的账户不同步
func (e *Engine) snapshotBalances(ctx context.Context, m *Mutation) (map[string]int64, error) {
	prior := make(map[string]int64, len(m.Balances))
	for id := range m.Balances {
		a, err := e.ledger.GetAccount(ctx, id)
		if errors.Is(err, errs.ErrNotFound) {
			delete(m.Balances, id)
			delete(m.Games, id)
			continue
		}
		if err != nil {
			return nil, storeError(err, "load account %s", id)
		}
		prior[id] = a.TotalChips
	}
	return prior, nil
}

// restoreBalances 房间提交失败时把账户余额写回提交前的值
func (e *Engine) restoreBalances(ctx context.Context, prior map[string]int64) {
	if len(prior) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.Timeout)
	defer cancel()
	if err := e.ledger.SetBalances(ctx, prior); err != nil {
		e.logger.Error("restore account balances failed", "room", e.roomID, "balances", prior, "err", err)
	}
}

// storeError 超时等未分类错误归为存储故障
func storeError(err error, format string, args ...any) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Persistence(err, format, args...)
}

// afterCommit 写日志与通知，失败只记录不影响已提交的结果
func (e *Engine) afterCommit(ctx context.Context, m *Mutation, version int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.Timeout)
	defer cancel()

	now := time.Now()
	if e.ledger != nil {
		for i := range m.Actions {
			a := &m.Actions[i]
			a.ID = uuid.NewString()
			a.RoomID = e.roomID
			a.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
			if err := e.ledger.RecordAction(ctx, *a); err != nil {
				e.logger.Warn("record action failed", "action", a.Type, "err", err)
			}
		}
		for i := range m.Transfers {
			t := &m.Transfers[i]
			t.ID = uuid.NewString()
			t.CreatedAt = now
			if err := e.ledger.RecordTransfer(ctx, *t); err != nil {
				e.logger.Warn("record transfer failed", "err", err)
			}
		}
		for account, won := range m.Games {
			if err := e.ledger.RecordGame(ctx, account, won); err != nil {
				e.logger.Warn("record game failed", "account", account, "err", err)
			}
		}
	}

	if err := e.pub.Publish(ctx, observer.Event{RoomID: e.roomID, Version: version, Reason: m.Reason}); err != nil {
		e.logger.Warn("publish room event failed", "err", err)
	}
}
