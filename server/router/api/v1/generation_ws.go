package v1

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"
)

// handleGenerationWS streams pipeline progress events for the client's
// session as JSON frames. The connection stays open across generations so
// a client can watch consecutive queries on one socket.
func (s *APIV1Service) handleGenerationWS(c echo.Context) error {
	key := c.QueryParam("sessionId")
	if key == "" {
		key = sessionKey(c)
	}

	websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()

		events, cancel := s.Broker.Subscribe(key)
		defer cancel()

		// Read pump: clients never send payload frames, but reading is
		// the only way to observe a close on a hijacked connection.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				var discard []byte
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := websocket.JSON.Send(ws, ev); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}
