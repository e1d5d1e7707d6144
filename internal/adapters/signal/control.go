package signal

import (
	"time"

	"github.com/gorilla/websocket"
)

// pongWait must exceed the ping period so one late pong is tolerated.
func (ctl *SignalWSController) pongWait() time.Duration {
	return ctl.settings.PingPeriod * 10 / 9
}

func (ctl *SignalWSController) keepAlive(c *WsSignalConn) {
	c.conn.SetReadLimit(ctl.settings.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})
}

func (ctl *SignalWSController) ping(c *WsSignalConn) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
