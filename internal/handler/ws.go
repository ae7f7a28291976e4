package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/psds-microservice/support-chat-service/internal/hub"
	"github.com/psds-microservice/support-chat-service/internal/model"
)

const (
	wsReadDeadline = 90 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingPeriod   = 30 * time.Second
	wsReadLimit    = int64(4 << 10)
)

// channelSnapshot — кадр, который получает подписчик: полный список
// сообщений канала. Каждый кадр авторитетен, клиент заменяет свой
// список целиком.
type channelSnapshot struct {
	TransactionID string          `json:"transactionId"`
	Messages      []model.Message `json:"messages"`
}

type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			// Виджет встраивается на сторонние страницы, Origin не ограничиваем.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe открывает live-подписку на канал. Первый кадр (возможно,
// пустой) приходит сразу после апгрейда.
func (h *WSHandler) Subscribe(c *gin.Context) {
	transactionID := c.Param("id")
	sub, err := h.hub.Subscribe(c.Request.Context(), transactionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open subscription"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		log.Printf("ws: upgrade %s: %v", transactionID, err)
		return
	}
	go h.writeLoop(conn, sub)
	go h.readLoop(conn, sub)
}

// writeLoop шлёт снапшоты и пинги, пока подписка жива.
func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *hub.Subscription) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(channelSnapshot{
				TransactionID: sub.TransactionID(),
				Messages:      snap,
			}); err != nil {
				log.Printf("ws: write %s: %v", sub.TransactionID(), err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readLoop держит соединение и снимает подписку при разрыве — иначе
// каждая брошенная вкладка оставляет живую подписку.
func (h *WSHandler) readLoop(conn *websocket.Conn, sub *hub.Subscription) {
	defer func() {
		h.hub.Unsubscribe(sub)
		conn.Close()
	}()
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})
	for {
		// Входящих сообщений по этой трубе нет, отправка идёт через
		// POST. Читаем только ради close/pong.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
