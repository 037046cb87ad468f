package manager

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/engine"
	"ChipTracker/internal/game/table"
	"ChipTracker/internal/ledger"
	"ChipTracker/internal/observer"
	"ChipTracker/internal/room"
	"ChipTracker/internal/websocket"
)

// mockHub 实现 HubInterface，记录消息
type mockHub struct {
	mu   sync.Mutex
	msgs map[string][]websocket.OutgoingMessage
}

func newMockHub() *mockHub {
	return &mockHub{msgs: make(map[string][]websocket.OutgoingMessage)}
}

func (h *mockHub) BroadcastToPlayers(addrs []string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range addrs {
		h.msgs[a] = append(h.msgs[a], msg)
	}
}

func (h *mockHub) SendToPlayer(addr string, msg websocket.OutgoingMessage) {
	h.BroadcastToPlayers([]string{addr}, msg)
}

func (h *mockHub) Close() {}

func (h *mockHub) events(addr string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.msgs[addr]))
	for _, m := range h.msgs[addr] {
		out = append(out, m.Event)
	}
	return out
}

type fixture struct {
	mgr  *GameManager
	hub  *mockHub
	repo room.Repo
	room *table.Room
	host *table.Player
	bob  *table.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := log.New(io.Discard)
	repo := room.NewMemoryRepo()
	store := ledger.NewMemoryStore()
	svc := room.NewService(repo, store, room.Defaults{SmallBlind: 10, BigBlind: 20, MaxPlayers: 6}, logger)

	r, host, err := svc.CreateRoom(ctx, room.CreateRoomRequest{Nickname: "host", AccountID: "0xhost"})
	require.NoError(t, err)
	_, bob, err := svc.JoinRoom(ctx, room.JoinRequest{Code: r.Code, Nickname: "bob", AccountID: "0xbob"})
	require.NoError(t, err)

	bus := observer.NewLocalBus()
	hub := newMockHub()
	mgr := NewGameManager(repo, store, bus, bus, hub, engine.Options{MaxAttempts: 2, Timeout: time.Second}, logger)
	t.Cleanup(mgr.Close)
	return &fixture{mgr: mgr, hub: hub, repo: repo, room: r, host: host, bob: bob}
}

func TestGameManager_EngineLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e1, err := f.mgr.Engine(ctx, f.room.ID)
	require.NoError(t, err)
	e2, err := f.mgr.Engine(ctx, f.room.ID)
	require.NoError(t, err)
	assert.Same(t, e1, e2)

	_, err = f.mgr.Engine(ctx, "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	f.mgr.StopRoom(f.room.ID)
	e3, err := f.mgr.Engine(ctx, f.room.ID)
	require.NoError(t, err)
	assert.NotSame(t, e1, e3)

	f.mgr.Close()
	_, err = f.mgr.Engine(ctx, f.room.ID)
	assert.True(t, errors.Is(err, engine.ErrEngineClosed))
}

func TestGameManager_BroadcastsRoomUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	eng, err := f.mgr.Engine(ctx, f.room.ID)
	require.NoError(t, err)
	// 等观察 goroutine 订阅
	bus := f.mgr.obs.(*observer.LocalBus)
	require.Eventually(t, func() bool { return bus.Subscribers(f.room.ID) == 1 }, time.Second, 5*time.Millisecond)

	_, err = eng.SetBlinds(ctx, engine.BlindsCommand{SBPosition: 0, BBPosition: 1})
	require.NoError(t, err)

	for _, addr := range []string{"0xhost", "0xbob"} {
		require.Eventually(t, func() bool {
			return len(f.hub.events(addr)) == 1
		}, time.Second, 5*time.Millisecond, addr)
		assert.Equal(t, websocket.EventRoomUpdated, f.hub.events(addr)[0])
	}
}

func TestGameManager_HandlePlayerMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eng, err := f.mgr.Engine(ctx, f.room.ID)
	require.NoError(t, err)
	_, err = eng.SetBlinds(ctx, engine.BlindsCommand{SBPosition: 0, BBPosition: 1})
	require.NoError(t, err)
	_, err = eng.CollectBlinds(ctx)
	require.NoError(t, err)

	data, _ := json.Marshal(map[string]any{"room_id": f.room.ID, "player_id": f.host.PlayerID, "type": "call"})

	// bob 不能替房主操作
	f.mgr.HandlePlayerMessage(websocket.IncomingMessage{From: "0xbob", Event: websocket.EventPlayerAction, Data: data})
	require.Eventually(t, func() bool {
		for _, e := range f.hub.events("0xbob") {
			if e == websocket.EventActionError {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	f.mgr.HandlePlayerMessage(websocket.IncomingMessage{From: "0xHOST", Event: websocket.EventPlayerAction, Data: data})
	require.Eventually(t, func() bool {
		ps, err := f.repo.GetPlayers(ctx, f.room.ID)
		return err == nil && ps[0].CurrentBet == 20
	}, time.Second, 5*time.Millisecond)

	f.mgr.HandlePlayerMessage(websocket.IncomingMessage{From: "0xhost", Event: "chat", Data: data})
}

func TestHandler_RoundOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	// 代替 JWT 中间件注入地址
	r.Use(func(c *gin.Context) { c.Set("address", c.GetHeader("X-Address")) })
	NewHandler(f.mgr).Register(r)

	as := "0xhost"
	do := func(method, path, body string) (int, map[string]any) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Address", as)
		r.ServeHTTP(w, req)
		var out map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		return w.Code, out
	}
	base := "/rooms/" + f.room.ID
	host, bob := f.host.PlayerID, f.bob.PlayerID

	code, body := do(http.MethodPost, base+"/actions", `{"player_id":"`+host+`","type":"bet","amount":10}`)
	assert.Equal(t, http.StatusConflict, code, "room is still waiting")
	assert.Equal(t, false, body["success"])

	code, _ = do(http.MethodPost, base+"/blinds", `{"sb_position":0,"bb_position":0}`)
	assert.Equal(t, http.StatusConflict, code)

	as = "0xbob"
	code, body = do(http.MethodPost, base+"/blinds", `{"sb_position":0,"bb_position":1}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, body["error"], "only the host")
	as = "0xhost"

	code, _ = do(http.MethodPost, base+"/blinds", `{"sb_position":0,"bb_position":1}`)
	require.Equal(t, http.StatusOK, code)
	code, body = do(http.MethodPost, base+"/blinds/collect", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 30, body["room"].(map[string]any)["current_pot"])

	code, _ = do(http.MethodPost, base+"/actions", `{"player_id":"`+host+`","type":"shove"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(http.MethodPost, base+"/actions", `{"player_id":"`+bob+`","type":"check"}`)
	assert.Equal(t, http.StatusForbidden, code, "host cannot act for bob")

	code, _ = do(http.MethodPost, base+"/actions", `{"player_id":"`+host+`","type":"call"}`)
	require.Equal(t, http.StatusOK, code)

	code, _ = do(http.MethodPost, base+"/transfers", `{"from_player_id":"`+host+`","to_player_id":"`+host+`","amount":5}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(http.MethodPost, base+"/transfers", `{"from_player_id":"`+host+`","to_player_id":"`+bob+`","amount":5}`)
	require.Equal(t, http.StatusOK, code)

	code, body = do(http.MethodPost, base+"/settle", `{"pot_winners":[{"pot_index":0,"winner_ids":["ghost"]}]}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body["error"], "not eligible")

	code, _ = do(http.MethodPost, base+"/settle", `{"pot_winners":[{"pot_index":0,"winner_ids":[]}]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	as = "0xbob"
	code, _ = do(http.MethodPost, base+"/transfers", `{"from_player_id":"`+host+`","to_player_id":"`+bob+`","amount":5}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = do(http.MethodPost, base+"/settle", `{"pot_winners":[{"pot_index":0,"winner_ids":["`+bob+`"]}]}`)
	assert.Equal(t, http.StatusForbidden, code)
	as = ""
	code, _ = do(http.MethodPost, base+"/settle", `{"pot_winners":[{"pot_index":0,"winner_ids":["`+bob+`"]}]}`)
	assert.Equal(t, http.StatusForbidden, code)
	as = "0xhost"

	code, body = do(http.MethodPost, base+"/settle", `{"pot_winners":[{"pot_index":0,"winner_ids":["`+bob+`"]}]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["round_number"])

	code, body = do(http.MethodGet, base+"/actions?round=1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["actions"], 4) // 两个盲注、跟注、赢

	code, _ = do(http.MethodGet, base+"/actions?round=x", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(http.MethodGet, base+"/transfers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["transfers"], 1)

	code, _ = do(http.MethodPost, "/rooms/missing/settle", `{"pot_winners":[]}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGameManager_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.room.ID

	assert.NoError(t, f.mgr.RequireHost(ctx, id, "0xHOST"))
	assert.True(t, errors.Is(f.mgr.RequireHost(ctx, id, "0xbob"), errs.ErrForbidden))
	assert.True(t, errors.Is(f.mgr.RequireHost(ctx, "missing", "0xhost"), errs.ErrNotFound))

	assert.NoError(t, f.mgr.RequireSeat(ctx, id, "0xbob", f.bob.PlayerID, false))
	assert.True(t, errors.Is(f.mgr.RequireSeat(ctx, id, "0xhost", f.bob.PlayerID, false), errs.ErrForbidden))
	assert.NoError(t, f.mgr.RequireSeat(ctx, id, "0xhost", f.bob.PlayerID, true))
	assert.True(t, errors.Is(f.mgr.RequireSeat(ctx, id, "0xbob", f.host.PlayerID, true), errs.ErrForbidden))
	// 未知座位交给 engine 报错
	assert.NoError(t, f.mgr.RequireSeat(ctx, id, "0xbob", "ghost", false))

	// 没有绑定账户的房间不做限制
	svc := room.NewService(f.repo, nil, room.Defaults{SmallBlind: 10, BigBlind: 20, MaxPlayers: 6}, log.New(io.Discard))
	open, anon, err := svc.CreateRoom(ctx, room.CreateRoomRequest{Nickname: "anon"})
	require.NoError(t, err)
	assert.NoError(t, f.mgr.RequireHost(ctx, open.ID, ""))
	assert.NoError(t, f.mgr.RequireSeat(ctx, open.ID, "0xbob", anon.PlayerID, false))
}
