package room

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ChipTracker/internal/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/rooms", h.Create)
	r.POST("/rooms/join", h.Join)
	r.GET("/rooms/:id", h.Get)
	r.GET("/rooms/:id/players", h.Players)
	r.GET("/rooms/:id/pots", h.SidePots)
	r.POST("/rooms/:id/pots/preview", h.PreviewPots)
}

func fail(c *gin.Context, err error) {
	c.JSON(errs.Response(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

// POST /rooms body: {nickname, small_blind?, big_blind?, max_players?}
func (h *Handler) Create(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.AccountID = c.GetString("address")
	room, player, err := h.svc.CreateRoom(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Success: true, Room: room, Player: player})
}

// POST /rooms/join body: {room_code, nickname}
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.AccountID = c.GetString("address")
	room, player, err := h.svc.JoinRoom(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Success: true, Room: room, Player: player})
}

// GET /rooms/:id 参数可以是房间 ID 或 6 位房间码
func (h *Handler) Get(c *gin.Context) {
	key := c.Param("id")
	var err error
	resp := RoomResponse{Success: true}
	if len(key) == codeLength {
		resp.Room, err = h.svc.GetRoomByCode(c.Request.Context(), key)
	} else {
		resp.Room, err = h.svc.GetRoom(c.Request.Context(), key)
	}
	if err != nil {
		fail(c, err)
		return
	}
	resp.Players, err = h.svc.Players(c.Request.Context(), resp.Room.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /rooms/:id/players
func (h *Handler) Players(c *gin.Context) {
	players, err := h.svc.Players(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Success: true, Players: players})
}

// GET /rooms/:id/pots
func (h *Handler) SidePots(c *gin.Context) {
	pots, round, err := h.svc.SidePots(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PotsResponse{Success: true, Round: round, Pots: pots})
}

// POST /rooms/:id/pots/preview
func (h *Handler) PreviewPots(c *gin.Context) {
	pots, round, err := h.svc.PreviewPots(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PotsResponse{Success: true, Round: round, Pots: pots})
}
