package manager

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/engine"
	"ChipTracker/internal/game/table"
)

type Handler struct {
	mgr *GameManager
}

func NewHandler(mgr *GameManager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/rooms/:id/actions", h.Act)
	r.GET("/rooms/:id/actions", h.History)
	r.POST("/rooms/:id/blinds", h.SetBlinds)
	r.POST("/rooms/:id/blinds/collect", h.CollectBlinds)
	r.POST("/rooms/:id/transfers", h.Transfer)
	r.GET("/rooms/:id/transfers", h.Transfers)
	r.POST("/rooms/:id/settle", h.Settle)
}

// SettleRequest 每个池选出的赢家
type SettleRequest struct {
	PotWinners []table.WinnerSelection `json:"pot_winners" binding:"dive"`
}

func fail(c *gin.Context, err error) {
	c.JSON(errs.Response(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

// hostEngine 校验房主后返回房间 engine
func (h *Handler) hostEngine(c *gin.Context) (*engine.Engine, bool) {
	if err := h.mgr.RequireHost(c.Request.Context(), c.Param("id"), c.GetString("address")); err != nil {
		fail(c, err)
		return nil, false
	}
	return h.roomEngine(c)
}

// seatEngine 校验座位归属后返回房间 engine
func (h *Handler) seatEngine(c *gin.Context, playerID string, hostMay bool) (*engine.Engine, bool) {
	if err := h.mgr.RequireSeat(c.Request.Context(), c.Param("id"), c.GetString("address"), playerID, hostMay); err != nil {
		fail(c, err)
		return nil, false
	}
	return h.roomEngine(c)
}

func (h *Handler) roomEngine(c *gin.Context) (*engine.Engine, bool) {
	eng, err := h.mgr.Engine(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return eng, true
}

// POST /rooms/:id/actions body: {player_id, type, amount}
func (h *Handler) Act(c *gin.Context) {
	var req engine.ActionCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	eng, ok := h.seatEngine(c, req.PlayerID, false)
	if !ok {
		return
	}
	p, err := eng.Act(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "player": p})
}

// GET /rooms/:id/actions?round=N
func (h *Handler) History(c *gin.Context) {
	round, err := strconv.Atoi(c.DefaultQuery("round", "0"))
	if err != nil || round < 0 {
		fail(c, errs.Validation("invalid round %q", c.Query("round")))
		return
	}
	actions, err := h.mgr.History(c.Request.Context(), c.Param("id"), round)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "actions": actions})
}

// POST /rooms/:id/blinds body: {sb_position, bb_position}
func (h *Handler) SetBlinds(c *gin.Context) {
	var req engine.BlindsCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	eng, ok := h.hostEngine(c)
	if !ok {
		return
	}
	r, err := eng.SetBlinds(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": r})
}

// POST /rooms/:id/blinds/collect
func (h *Handler) CollectBlinds(c *gin.Context) {
	eng, ok := h.hostEngine(c)
	if !ok {
		return
	}
	r, err := eng.CollectBlinds(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": r})
}

// POST /rooms/:id/transfers body: {from_player_id, to_player_id, amount}
func (h *Handler) Transfer(c *gin.Context) {
	var req engine.TransferCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	eng, ok := h.seatEngine(c, req.FromPlayerID, true)
	if !ok {
		return
	}
	t, err := eng.Transfer(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transfer": t})
}

// GET /rooms/:id/transfers
func (h *Handler) Transfers(c *gin.Context) {
	list, err := h.mgr.Transfers(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transfers": list})
}

// POST /rooms/:id/settle body: {pot_winners: [{pot_index, winner_ids}]}
// 结果只返回 success，客户端重新拉取房间状态
func (h *Handler) Settle(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	eng, ok := h.hostEngine(c)
	if !ok {
		return
	}
	out, err := eng.Settle(c.Request.Context(), req.PotWinners)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "round_number": out.Room.RoundNumber, "refunded": out.Refunded})
}
