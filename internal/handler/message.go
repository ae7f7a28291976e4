package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/hub"
	"github.com/psds-microservice/support-chat-service/internal/kafka"
	"github.com/psds-microservice/support-chat-service/internal/model"
	"github.com/psds-microservice/support-chat-service/internal/ratelimit"
	"github.com/psds-microservice/support-chat-service/internal/service"
)

type MessageHandler struct {
	svc     service.MessageServicer
	limiter *ratelimit.PerKey
	hub     *hub.Hub
	events  kafka.EventProducer
}

func NewMessageHandler(svc service.MessageServicer, limiter *ratelimit.PerKey, h *hub.Hub, events kafka.EventProducer) *MessageHandler {
	return &MessageHandler{svc: svc, limiter: limiter, hub: h, events: events}
}

type sendMessageRequest struct {
	Sender string `json:"sender" binding:"required"`
	Text   string `json:"text"`
}

// Create — append-only вставка в канал. Свой снапшот отправитель
// получает через подписку, оптимистичного рендера нет.
func (h *MessageHandler) Create(c *gin.Context) {
	transactionID := c.Param("id")
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	msg := &model.Message{
		TransactionID: transactionID,
		Sender:        model.Sender(req.Sender),
		Text:          req.Text,
	}
	// Мусор отбраковывается до расхода квоты: поток невалидных запросов
	// не должен выедать лимит канала у настоящего клиента.
	if err := h.svc.Validate(msg); err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidSender):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "sender must be 'client' or 'support'"})
		case errors.Is(err, errs.ErrMessageTooLarge):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "message text exceeds maximum size"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}
	if !h.limiter.Allow(transactionID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		return
	}
	if err := h.svc.Append(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	h.hub.NotifyAsync(transactionID)
	if h.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		go func() {
			defer cancel()
			h.events.ProduceEvent(ctx, "message.created", map[string]interface{}{
				"message_id":     msg.ID,
				"transaction_id": msg.TransactionID,
				"sender":         string(msg.Sender),
				"text_bytes":     len(msg.Text),
			})
		}()
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) List(c *gin.Context) {
	items, err := h.svc.ListByTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactionId": c.Param("id"),
		"messages":      items,
	})
}
