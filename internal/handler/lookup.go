package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/lookup"
)

// LookupHandler проксирует внешний identity-провайдер: страница статуса
// ходит сюда, бот-токен остаётся на сервере.
type LookupHandler struct {
	client lookup.Fetcher
}

func NewLookupHandler(client lookup.Fetcher) *LookupHandler {
	return &LookupHandler{client: client}
}

// CORS — виджет живёт на чужих origin'ах, preflight отвечаем сами.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (h *LookupHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	body, err := h.client.FetchUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrTokenMissing) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error: BOT_TOKEN missing"})
			return
		}
		// Ответ апстрима в лог, наружу только факт ошибки.
		log.Printf("lookup: fetch %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// MissingID отвечает на /lookup без идентификатора.
func (h *LookupHandler) MissingID(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
}
