package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(store *SessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", Middleware(store), func(c *gin.Context) {
		sess, _ := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"username": sess.Username})
	})
	r.GET("/super", Middleware(store), RequireSuper(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doAuth(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	store := NewSessionStore(time.Hour)
	r := newAuthRouter(store)
	w := doAuth(r, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsUnknownToken(t *testing.T) {
	store := NewSessionStore(time.Hour)
	r := newAuthRouter(store)
	w := doAuth(r, "/admin", "bogus")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewarePassesValidSession(t *testing.T) {
	store := NewSessionStore(time.Hour)
	sess := store.Issue("alice", false)
	r := newAuthRouter(store)
	w := doAuth(r, "/admin", sess.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestRequireSuperRejectsRegularAdmin(t *testing.T) {
	store := NewSessionStore(time.Hour)
	sess := store.Issue("alice", false)
	r := newAuthRouter(store)
	w := doAuth(r, "/super", sess.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireSuperPassesSuperAdmin(t *testing.T) {
	store := NewSessionStore(time.Hour)
	sess := store.Issue("root", true)
	r := newAuthRouter(store)
	w := doAuth(r, "/super", sess.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerTokenParsing(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("Basic abc"))
}
