package manager

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/engine"
	"ChipTracker/internal/game/table"
	"ChipTracker/internal/ledger"
	"ChipTracker/internal/observer"
	"ChipTracker/internal/room"
	"ChipTracker/internal/websocket"
)

// GameManager 每个房间一个 engine，并把房间变化推给桌上玩家
type GameManager struct {
	mu       sync.Mutex
	engines  map[string]*engine.Engine     // roomID → engine
	watchers map[string]context.CancelFunc // roomID → 停止观察

	repo    room.Repo
	store   ledger.Store
	obs     observer.Observer
	pub     observer.Publisher
	hub     websocket.HubInterface
	opts    engine.Options
	logger  *log.Logger
	closing bool
}

func NewGameManager(repo room.Repo, store ledger.Store, obs observer.Observer, pub observer.Publisher, hub websocket.HubInterface, opts engine.Options, logger *log.Logger) *GameManager {
	return &GameManager{
		engines:  make(map[string]*engine.Engine),
		watchers: make(map[string]context.CancelFunc),
		repo:     repo,
		store:    store,
		obs:      obs,
		pub:      pub,
		hub:      hub,
		opts:     opts,
		logger:   logger,
	}
}

// Engine 取房间的 engine，第一次访问时创建并开始观察该房间
func (m *GameManager) Engine(ctx context.Context, roomID string) (*engine.Engine, error) {
	m.mu.Lock()
	if eng, ok := m.engines[roomID]; ok {
		m.mu.Unlock()
		return eng, nil
	}
	m.mu.Unlock()

	if _, err := m.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return nil, engine.ErrEngineClosed
	}
	if eng, ok := m.engines[roomID]; ok {
		return eng, nil
	}
	eng := engine.NewEngine(roomID, m.repo, m.store, m.pub, m.opts, m.logger)
	m.engines[roomID] = eng
	if m.obs != nil && m.hub != nil {
		wctx, cancel := context.WithCancel(context.Background())
		m.watchers[roomID] = cancel
		go m.watch(wctx, roomID)
	}
	m.logger.Debug("engine started", "room", roomID)
	return eng, nil
}

func (m *GameManager) watch(ctx context.Context, roomID string) {
	err := m.obs.Watch(ctx, roomID, func(ev observer.Event) {
		m.broadcast(ctx, ev)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("room watch stopped", "room", roomID, "err", err)
	}
}

// broadcast 重新读取房间状态推给所有绑定了钱包的玩家
func (m *GameManager) broadcast(ctx context.Context, ev observer.Event) {
	r, err := m.repo.GetRoom(ctx, ev.RoomID)
	if err != nil {
		m.logger.Warn("load room for broadcast failed", "room", ev.RoomID, "err", err)
		return
	}
	players, err := m.repo.GetPlayers(ctx, ev.RoomID)
	if err != nil {
		m.logger.Warn("load players for broadcast failed", "room", ev.RoomID, "err", err)
		return
	}
	addrs := make([]string, 0, len(players))
	for _, p := range players {
		if p.AccountID != "" {
			addrs = append(addrs, p.AccountID)
		}
	}
	if len(addrs) == 0 {
		return
	}
	m.hub.BroadcastToPlayers(addrs, websocket.OutgoingMessage{
		Event: websocket.EventRoomUpdated,
		Data: map[string]any{
			"reason":  ev.Reason,
			"room":    r,
			"players": players,
		},
	})
}

// PlayerActionMessage websocket 上的下注消息
type PlayerActionMessage struct {
	RoomID string `json:"room_id"`
	engine.ActionCommand
}

// HandlePlayerMessage 统一入口（来自 Hub.OnIncoming）
func (m *GameManager) HandlePlayerMessage(msg websocket.IncomingMessage) {
	if msg.Event != websocket.EventPlayerAction {
		return
	}
	// hub 的循环里只做解析，真正执行放到独立 goroutine
	go func() {
		if err := m.handleAction(context.Background(), msg); err != nil {
			m.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
				Event: websocket.EventActionError,
				Data:  map[string]any{"success": false, "error": errs.Message(err)},
			})
		}
	}()
}

func (m *GameManager) handleAction(ctx context.Context, msg websocket.IncomingMessage) error {
	var req PlayerActionMessage
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return errs.Validation("malformed action: %v", err)
	}
	players, err := m.repo.GetPlayers(ctx, req.RoomID)
	if err != nil {
		return err
	}
	// 只能替自己绑定的座位操作
	owned := false
	for _, p := range players {
		if p.PlayerID == req.PlayerID && p.AccountID != "" && p.AccountID == ledger.NormalizeID(msg.From) {
			owned = true
			break
		}
	}
	if !owned {
		return errs.Rule("player %s is not yours", req.PlayerID)
	}
	eng, err := m.Engine(ctx, req.RoomID)
	if err != nil {
		return err
	}
	_, err = eng.Act(ctx, req.ActionCommand)
	return err
}

// RequireHost 房主绑定了账户时，只有房主本人能设盲注、结算
func (m *GameManager) RequireHost(ctx context.Context, roomID, address string) error {
	r, players, err := m.load(ctx, roomID)
	if err != nil {
		return err
	}
	host := findPlayer(players, r.HostID)
	if host == nil || host.AccountID == "" || host.AccountID == ledger.NormalizeID(address) {
		return nil
	}
	return errs.Forbidden("only the host can manage room %s", r.Code)
}

// RequireSeat 绑定了账户的座位只能由本人操作，hostMay 时房主也可以
func (m *GameManager) RequireSeat(ctx context.Context, roomID, address, playerID string, hostMay bool) error {
	r, players, err := m.load(ctx, roomID)
	if err != nil {
		return err
	}
	address = ledger.NormalizeID(address)
	p := findPlayer(players, playerID)
	if p == nil || p.AccountID == "" || p.AccountID == address {
		return nil
	}
	if hostMay {
		if host := findPlayer(players, r.HostID); host != nil && host.AccountID == address {
			return nil
		}
	}
	return errs.Forbidden("player %s is not yours", playerID)
}

func (m *GameManager) load(ctx context.Context, roomID string) (*table.Room, []table.Player, error) {
	r, err := m.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	players, err := m.repo.GetPlayers(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return r, players, nil
}

func findPlayer(players []table.Player, id string) *table.Player {
	for i := range players {
		if players[i].PlayerID == id {
			return &players[i]
		}
	}
	return nil
}

// History 房间的动作日志
func (m *GameManager) History(ctx context.Context, roomID string, round int) ([]table.Action, error) {
	if _, err := m.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return m.store.ListActions(ctx, roomID, round)
}

func (m *GameManager) Transfers(ctx context.Context, roomID string) ([]table.Transfer, error) {
	if _, err := m.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return m.store.ListTransfers(ctx, roomID)
}

// StopRoom 停止房间的 engine 与观察
func (m *GameManager) StopRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if eng, ok := m.engines[roomID]; ok {
		eng.Close()
		delete(m.engines, roomID)
	}
	if cancel, ok := m.watchers[roomID]; ok {
		cancel()
		delete(m.watchers, roomID)
	}
}

func (m *GameManager) Close() {
	m.mu.Lock()
	m.closing = true
	ids := make([]string, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.StopRoom(id)
	}
}
