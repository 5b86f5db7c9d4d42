package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Skufu/Health-Info-Assistant/internal/chat"
	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/response"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingInterval   = (wsPongWait * 9) / 10
	wsMaxMessageSize = 8 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	wsTypeReply = "reply"
	wsTypeError = "error"
)

// wsMessage is what the server writes back for every client frame.
type wsMessage struct {
	Type  string              `json:"type"`
	Data  *chat.Reply         `json:"data,omitempty"`
	Error *response.ErrorInfo `json:"error,omitempty"`
}

// WebSocket serves the chat pipeline over a websocket. Each JSON frame
// {conversationId?, message} gets one reply or error frame.
func (h *ChatHandler) WebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		out := h.answerFrame(ctx, data)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			l.Warn().Err(err).Msg("websocket write failed")
			return
		}
	}
}

// answerFrame turns one client frame into the reply or error frame to send.
func (h *ChatHandler) answerFrame(ctx context.Context, data []byte) wsMessage {
	var req chat.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return wsMessage{Type: wsTypeError, Error: &response.ErrorInfo{
			Code:    "BAD_REQUEST",
			Message: `expected a JSON object like {"conversationId": "...", "message": "..."}`,
		}}
	}

	reply, err := h.chatService.Ask(ctx, req)
	if err != nil {
		_, code, msg := chatError(err)
		return wsMessage{Type: wsTypeError, Error: &response.ErrorInfo{Code: code, Message: msg}}
	}
	return wsMessage{Type: wsTypeReply, Data: reply}
}

func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
