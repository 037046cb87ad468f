package room

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/pot"
	"ChipTracker/internal/game/table"
	"ChipTracker/internal/ledger"
)

const (
	codeLength      = 6
	codeAttempts    = 5
	seatAttempts    = 3
	previewAttempts = 3
)

// Defaults 新房间的盲注、人数与入座筹码
type Defaults struct {
	SmallBlind    int64
	BigBlind      int64
	MaxPlayers    int
	StartingChips int64
}

type Service struct {
	repo     Repo
	accounts ledger.Accounts // 可为 nil
	defaults Defaults
	logger   *log.Logger
}

func NewService(repo Repo, accounts ledger.Accounts, d Defaults, logger *log.Logger) *Service {
	if d.MaxPlayers <= 0 {
		d.MaxPlayers = 6
	}
	if d.StartingChips <= 0 {
		d.StartingChips = ledger.DefaultStartingChips
	}
	return &Service{repo: repo, accounts: accounts, defaults: d, logger: logger}
}

func (s *Service) Repo() Repo { return s.repo }

// CreateRoom 建房，房主坐 0 号位
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*table.Room, *table.Player, error) {
	sb, bb := req.SmallBlind, req.BigBlind
	if sb == 0 {
		sb = s.defaults.SmallBlind
	}
	if bb == 0 {
		bb = s.defaults.BigBlind
	}
	if sb <= 0 || bb <= sb {
		return nil, nil, errs.Validation("big blind must exceed small blind")
	}
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = s.defaults.MaxPlayers
	}
	if maxPlayers < 2 {
		return nil, nil, errs.Validation("max players must be at least 2")
	}

	now := time.Now()
	hostID := uuid.NewString()
	r := &table.Room{
		RoundState: table.RoundState{RoundNumber: 1},
		ID:         uuid.NewString(),
		Status:     table.RoomWaiting,
		HostID:     hostID,
		SmallBlind: sb,
		BigBlind:   bb,
		MaxPlayers: maxPlayers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var err error
	for i := 0; i < codeAttempts; i++ {
		r.Code = newCode()
		err = s.repo.CreateRoom(ctx, r)
		if err == nil || !errors.Is(err, errs.ErrRuleViolation) {
			break
		}
	}
	if err != nil {
		return nil, nil, err
	}

	host, err := s.seat(ctx, r, hostID, req.Nickname, req.AccountID, 0)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("room created", "room", r.ID, "code", r.Code, "host", hostID)

	fresh, err := s.repo.GetRoom(ctx, r.ID)
	if err != nil {
		return nil, nil, err
	}
	return fresh, host, nil
}

// JoinRoom 按房间码入座到最小的空位；同一账户重复加入返回原座位
func (s *Service) JoinRoom(ctx context.Context, req JoinRequest) (*table.Room, *table.Player, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	r, err := s.repo.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if r.Status == table.RoomFinished {
		return nil, nil, errs.Rule("room %s is finished", code)
	}

	for attempt := 0; attempt < seatAttempts; attempt++ {
		players, err := s.repo.GetPlayers(ctx, r.ID)
		if err != nil {
			return nil, nil, err
		}
		taken := make(map[int]bool, len(players))
		for _, p := range players {
			if req.AccountID != "" && p.AccountID == ledger.NormalizeID(req.AccountID) {
				return r, &p, nil
			}
			taken[p.Position] = true
		}
		seat := -1
		for i := 0; i < r.MaxPlayers; i++ {
			if !taken[i] {
				seat = i
				break
			}
		}
		if seat < 0 {
			return nil, nil, errs.Rule("room %s is full", code)
		}

		p, err := s.seat(ctx, r, uuid.NewString(), req.Nickname, req.AccountID, seat)
		if errors.Is(err, errs.ErrRuleViolation) {
			// 座位被并发抢占，重新挑选
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		s.logger.Info("player joined", "room", r.ID, "player", p.PlayerID, "seat", seat)
		fresh, err := s.repo.GetRoom(ctx, r.ID)
		if err != nil {
			return nil, nil, err
		}
		return fresh, p, nil
	}
	return nil, nil, errs.Rule("could not find a free seat in room %s", code)
}

func (s *Service) seat(ctx context.Context, r *table.Room, playerID, nickname, accountID string, position int) (*table.Player, error) {
	accountID = ledger.NormalizeID(accountID)
	p := &table.Player{
		PlayerStake: table.PlayerStake{
			PlayerID:  playerID,
			ChipStack: s.startingChips(ctx, accountID),
			Status:    table.StatusActive,
		},
		RoomID:      r.ID,
		Nickname:    nickname,
		Position:    position,
		AccountID:   accountID,
		IsConnected: true,
		JoinedAt:    time.Now(),
	}
	if err := s.repo.AddPlayer(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// startingChips 绑定了已有账户时带入账户余额（可以为 0），否则用房间默认值
func (s *Service) startingChips(ctx context.Context, accountID string) int64 {
	if accountID == "" || s.accounts == nil {
		return s.defaults.StartingChips
	}
	a, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			s.logger.Warn("load account balance failed", "account", accountID, "err", err)
		}
		return s.defaults.StartingChips
	}
	return a.TotalChips
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (*table.Room, error) {
	return s.repo.GetRoom(ctx, roomID)
}

func (s *Service) GetRoomByCode(ctx context.Context, code string) (*table.Room, error) {
	return s.repo.GetRoomByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) Players(ctx context.Context, roomID string) ([]table.Player, error) {
	return s.repo.GetPlayers(ctx, roomID)
}

// RoomVersion 供轮询观察者比较
func (s *Service) RoomVersion(ctx context.Context, roomID string) (int64, error) {
	r, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return r.Version, nil
}

// SidePots 当前轮已生成的边池
func (s *Service) SidePots(ctx context.Context, roomID string) ([]table.Pot, int, error) {
	r, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	pots, err := s.repo.GetSidePots(ctx, roomID, r.RoundNumber)
	if err != nil {
		return nil, 0, err
	}
	return pots, r.RoundNumber, nil
}

// PreviewPots 按当前下注切分底池并保存为本轮边池；读取后房间被改动则重新切分
func (s *Service) PreviewPots(ctx context.Context, roomID string) ([]table.Pot, int, error) {
	var err error
	for i := 0; i < previewAttempts; i++ {
		var (
			pots  []table.Pot
			round int
		)
		pots, round, err = s.previewPots(ctx, roomID)
		if !errors.Is(err, ErrVersionConflict) {
			return pots, round, err
		}
	}
	return nil, 0, err
}

func (s *Service) previewPots(ctx context.Context, roomID string) ([]table.Pot, int, error) {
	r, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	players, err := s.repo.GetPlayers(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	pots := pot.Partition(table.Stakes(players))
	if total := pot.Total(pots); total != r.Pot {
		s.logger.Warn("pot does not match bets", "room", roomID, "pot", r.Pot, "bets", total)
	}
	if err := s.repo.CreateSidePots(ctx, roomID, r.Version, r.RoundNumber, pots); err != nil {
		return nil, 0, err
	}
	return pots, r.RoundNumber, nil
}

func newCode() string {
	return rand.Text()[:codeLength]
}
