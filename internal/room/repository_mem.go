package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"
)

type memRepo struct {
	mu       sync.Mutex
	rooms    map[string]table.Room
	codes    map[string]string                  // code -> roomID
	players  map[string]map[string]table.Player // roomID -> playerID -> player
	sidePots map[string][]table.Pot             // sidePotKey -> pots
}

func NewMemoryRepo() Repo {
	return &memRepo{
		rooms:    make(map[string]table.Room),
		codes:    make(map[string]string),
		players:  make(map[string]map[string]table.Player),
		sidePots: make(map[string][]table.Pot),
	}
}

func (m *memRepo) CreateRoom(ctx context.Context, r *table.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[r.ID]; ok {
		return errs.Rule("room %s already exists", r.ID)
	}
	if _, ok := m.codes[r.Code]; ok {
		return errs.Rule("room code %s already in use", r.Code)
	}
	m.rooms[r.ID] = r.Clone()
	m.codes[r.Code] = r.ID
	m.players[r.ID] = make(map[string]table.Player)
	return nil
}

func (m *memRepo) GetRoom(ctx context.Context, roomID string) (*table.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, errs.NotFound("room %s not found", roomID)
	}
	c := r.Clone()
	return &c, nil
}

func (m *memRepo) GetRoomByCode(ctx context.Context, code string) (*table.Room, error) {
	m.mu.Lock()
	id, ok := m.codes[code]
	m.mu.Unlock()
	if !ok {
		return nil, errs.NotFound("room %s not found", code)
	}
	return m.GetRoom(ctx, id)
}

func (m *memRepo) AddPlayer(ctx context.Context, p *table.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[p.RoomID]
	if !ok {
		return errs.NotFound("room %s not found", p.RoomID)
	}
	for _, other := range m.players[p.RoomID] {
		if other.Position == p.Position {
			return errs.Rule("seat %d is taken", p.Position)
		}
	}
	m.players[p.RoomID][p.PlayerID] = *p
	r.Version++
	r.UpdatedAt = time.Now()
	m.rooms[r.ID] = r
	return nil
}

func (m *memRepo) GetPlayers(ctx context.Context, roomID string) ([]table.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps, ok := m.players[roomID]
	if !ok {
		return nil, errs.NotFound("room %s not found", roomID)
	}
	out := make([]table.Player, 0, len(ps))
	for _, p := range ps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memRepo) GetSidePots(ctx context.Context, roomID string, round int) ([]table.Pot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePots(m.sidePots[sidePotKey(roomID, round)]), nil
}

func (m *memRepo) CreateSidePots(ctx context.Context, roomID string, version int64, round int, pots []table.Pot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rooms[roomID]
	if !ok {
		return errs.NotFound("room %s not found", roomID)
	}
	if cur.Version != version {
		return ErrVersionConflict
	}
	// 同一轮重复生成时整体替换
	m.sidePots[sidePotKey(roomID, round)] = clonePots(pots)
	return nil
}

func (m *memRepo) Commit(ctx context.Context, c Change) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rooms[c.Room.ID]
	if !ok {
		return 0, errs.NotFound("room %s not found", c.Room.ID)
	}
	if cur.Version != c.Room.Version {
		return 0, ErrVersionConflict
	}
	for _, p := range c.Players {
		if _, ok := m.players[c.Room.ID][p.PlayerID]; !ok {
			return 0, errs.NotFound("player %s not found", p.PlayerID)
		}
	}

	next := c.Room.Clone()
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now()
	m.rooms[next.ID] = next
	for _, p := range c.Players {
		m.players[next.ID][p.PlayerID] = p
	}
	if c.ClearSidePotsRound > 0 {
		delete(m.sidePots, sidePotKey(next.ID, c.ClearSidePotsRound))
	}
	return next.Version, nil
}

func clonePots(pots []table.Pot) []table.Pot {
	out := make([]table.Pot, len(pots))
	for i, p := range pots {
		out[i] = table.Pot{
			Index:             p.Index,
			Amount:            p.Amount,
			EligiblePlayerIDs: append([]string(nil), p.EligiblePlayerIDs...),
		}
	}
	return out
}
