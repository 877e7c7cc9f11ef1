package daemon

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The daemon only listens on a unix socket, so origin checks do not
	// apply.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// wsMessage is the wire frame for the event stream.
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// getWS streams hub events to a websocket client. Each client gets its own
// subscription; a slow client drops events rather than blocking the
// acquisition loop.
func getWS(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.Debugf("websocket close: %v", err)
		}
	}()

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice a closed connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			msg := wsMessage{Event: ev.Name}
			if len(ev.Data) > 0 {
				msg.Data = ev.Data
			}
			if err := conn.WriteJSON(msg); err != nil {
				logrus.Debugf("websocket write failed: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
