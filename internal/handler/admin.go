package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-chat-service/internal/auth"
	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/service"
)

type AdminHandler struct {
	svc      service.AdminServicer
	logs     service.LogServicer
	sessions *auth.SessionStore

	// Бутстрап-кредент супер-админа из конфига: им заводят первых
	// админов, когда таблица admins ещё пуста.
	superUser string
	superPass string
}

func NewAdminHandler(svc service.AdminServicer, logs service.LogServicer, sessions *auth.SessionStore, superUser, superPass string) *AdminHandler {
	return &AdminHandler{svc: svc, logs: logs, sessions: sessions, superUser: superUser, superPass: superPass}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if h.superUser != "" &&
		subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.superUser)) == 1 &&
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.superPass)) == 1 {
		c.JSON(http.StatusOK, h.sessions.Issue(req.Username, true))
		return
	}
	admin, err := h.svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
		return
	}
	c.JSON(http.StatusOK, h.sessions.Issue(admin.Username, admin.SuperAdmin))
}

func (h *AdminHandler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 {
		h.sessions.Revoke(strings.TrimSpace(parts[1]))
	}
	c.Status(http.StatusNoContent)
}

type createAdminRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	SuperAdmin bool   `json:"superAdmin"`
}

// Create заводит аккаунт админа. Лимит аккаунтов проверяется в
// сервисе атомарно, пятый запрос получает 409 и под конкуренцией.
func (h *AdminHandler) Create(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	admin, err := h.svc.Create(c.Request.Context(), req.Username, req.Password, req.SuperAdmin)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrAdminLimit):
			c.JSON(http.StatusConflict, gin.H{"error": "admin account limit reached"})
		case errors.Is(err, errs.ErrAdminExists):
			c.JSON(http.StatusConflict, gin.H{"error": "admin already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create admin"})
		}
		return
	}
	c.JSON(http.StatusCreated, admin)
}

func (h *AdminHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list admins"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": items})
}

func (h *AdminHandler) Delete(c *gin.Context) {
	username := c.Param("username")
	if err := h.svc.Delete(c.Request.Context(), username); err != nil {
		if errors.Is(err, errs.ErrAdminNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "admin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete admin"})
		return
	}
	h.sessions.RevokeUser(username)
	c.Status(http.StatusNoContent)
}

// Logs отдаёт журнал модерации, свежие записи первыми.
func (h *AdminHandler) Logs(c *gin.Context) {
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
	items, total, err := h.logs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  items,
		"total": total,
	})
}
