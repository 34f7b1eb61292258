package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/stemsi/roster-backend/internal/model"
)

const (
	writeWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)

// WriteTyped sends a strongly-typed payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteAudit sends one audit entry frame.
func WriteAudit(conn *websocket.Conn, entry model.AuditEntry) error {
	return WriteTyped(conn, AuditFrame{Event: EventAudit, Entry: entry})
}

// WriteError sends a typed ErrorFrame over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorFrame{
		Event: EventError,
		Error: errMsg,
	})
}

// WritePing sends a control ping.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// KeepReading drains client frames so pongs and close frames are processed.
// It returns when the peer goes away.
func KeepReading(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return err
		}
	}
}
