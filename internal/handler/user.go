package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-chat-service/internal/auth"
	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/hub"
	"github.com/psds-microservice/support-chat-service/internal/kafka"
	"github.com/psds-microservice/support-chat-service/internal/model"
	"github.com/psds-microservice/support-chat-service/internal/service"
	"gorm.io/gorm"
)

type UserHandler struct {
	svc      service.UserServicer
	messages service.MessageServicer
	logs     service.LogServicer
	events   kafka.EventProducer
	hub      *hub.Hub
}

func NewUserHandler(svc service.UserServicer, messages service.MessageServicer, logs service.LogServicer, events kafka.EventProducer, h *hub.Hub) *UserHandler {
	return &UserHandler{svc: svc, messages: messages, logs: logs, events: events, hub: h}
}

type userRequest struct {
	UserID        string `json:"userID"`
	Type          string `json:"type"`
	AccountStatus string `json:"accountStatus"`
	Username      string `json:"username"`
	DateCreated   string `json:"dateCreated"`
	ActiveReports int    `json:"activeReports"`
	ProfileImage  string `json:"profileImage"`
	BannerImage   string `json:"bannerImage"`
	Version       int64  `json:"version"`
}

func (r *userRequest) toModel() *model.User {
	status := r.AccountStatus
	if status == "" {
		status = string(model.AccountStatusGood)
	}
	return &model.User{
		UserID:        r.UserID,
		Type:          r.Type,
		AccountStatus: model.AccountStatus(status),
		Username:      r.Username,
		DateCreated:   r.DateCreated,
		ActiveReports: r.ActiveReports,
		ProfileImage:  r.ProfileImage,
		BannerImage:   r.BannerImage,
		Version:       r.Version,
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userID is required"})
		return
	}
	user := req.toModel()
	if err := h.svc.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, errs.ErrInvalidStatus) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "accountStatus must be 'Good', 'Pending Case' or 'Banned'"})
			return
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	h.audit(c, "create", user)
	h.produce("user.created", userEventPayload(user))
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) List(c *gin.Context) {
	filter := make(map[string]interface{})
	if v := c.Query("accountStatus"); v != "" {
		filter["account_status = ?"] = v
	}
	if v := c.Query("username"); v != "" {
		filter["username = ?"] = v
	}
	if v := c.Query("type"); v != "" {
		filter["type = ?"] = v
	}

	limit := 0
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	items, total, err := h.svc.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": items,
		"total": total,
	})
}

// Update — полная перезапись по версии из тела запроса.
func (h *UserHandler) Update(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	id := c.Param("id")
	user, err := h.svc.Overwrite(c.Request.Context(), id, req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, errs.ErrVersionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "user record was modified by another session, reload and retry"})
		case errors.Is(err, errs.ErrInvalidStatus):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "accountStatus must be 'Good', 'Pending Case' or 'Banned'"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	h.audit(c, "update", user)
	h.produce("user.updated", userEventPayload(user))
	c.JSON(http.StatusOK, user)
}

// Delete удаляет запись и асинхронно вычищает её канал сообщений.
// Очистка идемпотентна; пропущенные каналы добирает cleanup-orphans.
func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	user, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	h.audit(c, "delete", user)
	h.produce("user.deleted", userEventPayload(user))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		deleted, err := h.messages.CascadeCleanup(ctx, id)
		if err != nil {
			log.Printf("cleanup: channel %s: %v", id, err)
			return
		}
		if deleted > 0 {
			log.Printf("cleanup: channel %s: deleted %d messages", id, deleted)
			if h.events != nil {
				h.events.ProduceEvent(ctx, "channel.cleaned", map[string]interface{}{
					"transaction_id": id,
					"deleted":        deleted,
				})
			}
		}
		h.hub.Notify(ctx, id)
	}()

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) audit(c *gin.Context, action string, user *model.User) {
	adminName := "system"
	if sess, ok := auth.FromContext(c); ok {
		adminName = sess.Username
	}
	if err := h.logs.Append(c.Request.Context(), adminName, action, user.Username, user.UserID); err != nil {
		log.Printf("modlog: append %s %s: %v", action, user.UserID, err)
	}
}

func userEventPayload(u *model.User) map[string]interface{} {
	if u == nil {
		return nil
	}
	return map[string]interface{}{
		"user_id":        u.UserID,
		"username":       u.Username,
		"account_status": string(u.AccountStatus),
		"active_reports": u.ActiveReports,
		"version":        u.Version,
	}
}

// Fire-and-forget: событие должно уйти даже при отмене запроса, но с таймаутом.
func (h *UserHandler) produce(event string, payload map[string]interface{}) {
	if h.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		defer cancel()
		h.events.ProduceEvent(ctx, event, payload)
	}()
}
