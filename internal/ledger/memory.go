package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"
)

type memoryStore struct {
	mu        sync.Mutex
	accounts  map[string]Account
	actions   []table.Action
	transfers []table.Transfer
}

func NewMemoryStore() Store {
	return &memoryStore{accounts: make(map[string]Account)}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) EnsureAccount(_ context.Context, id, displayName string, startingChips int64) (*Account, error) {
	id = NormalizeID(id)
	if id == "" {
		return nil, errs.Validation("account id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return &a, nil
	}
	now := time.Now().UTC()
	a := Account{ID: id, DisplayName: displayName, TotalChips: startingChips, CreatedAt: now, UpdatedAt: now}
	m.accounts[id] = a
	return &a, nil
}

func (m *memoryStore) GetAccount(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[NormalizeID(id)]
	if !ok {
		return nil, errs.NotFound("account %s not found", id)
	}
	return &a, nil
}

func (m *memoryStore) SetBalances(_ context.Context, balances map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for id, chips := range balances {
		if chips < 0 {
			return errs.Validation("negative balance for %s", id)
		}
	}
	for id, chips := range balances {
		id = NormalizeID(id)
		a, ok := m.accounts[id]
		if !ok {
			a = Account{ID: id, CreatedAt: now}
		}
		a.TotalChips = chips
		a.UpdatedAt = now
		m.accounts[id] = a
	}
	return nil
}

func (m *memoryStore) AdjustChips(_ context.Context, id string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = NormalizeID(id)
	a, ok := m.accounts[id]
	if !ok {
		return 0, errs.NotFound("account %s not found", id)
	}
	a.TotalChips = max(0, a.TotalChips+delta)
	a.UpdatedAt = time.Now().UTC()
	m.accounts[id] = a
	return a.TotalChips, nil
}

func (m *memoryStore) RecordGame(_ context.Context, id string, won bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = NormalizeID(id)
	a, ok := m.accounts[id]
	if !ok {
		return errs.NotFound("account %s not found", id)
	}
	a.GamesPlayed++
	if won {
		a.GamesWon++
	}
	m.accounts[id] = a
	return nil
}

func (m *memoryStore) RecordAction(_ context.Context, a table.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, a)
	return nil
}

func (m *memoryStore) ListActions(_ context.Context, roomID string, round int) ([]table.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]table.Action, 0)
	for _, a := range m.actions {
		if a.RoomID == roomID && (round == 0 || a.RoundNumber == round) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) RecordTransfer(_ context.Context, t table.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, t)
	return nil
}

func (m *memoryStore) ListTransfers(_ context.Context, roomID string) ([]table.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]table.Transfer, 0)
	for _, t := range m.transfers {
		if t.RoomID == roomID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
