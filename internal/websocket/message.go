package websocket

import "encoding/json"

const (
	EventRoomUpdated  = "room_updated"
	EventPlayerAction = "player_action"
	EventActionError  = "action_error"
)

type OutgoingMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// IncomingMessage From 由服务端按连接的钱包地址填写
type IncomingMessage struct {
	From  string          `json:"from"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
