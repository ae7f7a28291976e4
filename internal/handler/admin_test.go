package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, a *api, username, password string) string {
	t.Helper()
	w := do(a, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func TestBootstrapSuperLogin(t *testing.T) {
	a := newAPI(0)
	token := login(t, a, testSuperUser, testSuperPass)

	// Бутстрап-сессия имеет права супер-админа.
	w := do(a, http.MethodPost, "/api/v1/admins", token,
		`{"username":"mod1","password":"hunter22"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestLoginBadCredentials(t *testing.T) {
	a := newAPI(0)
	w := do(a, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"nobody","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProvisionedAdminCanLogin(t *testing.T) {
	a := newAPI(0)
	super := login(t, a, testSuperUser, testSuperPass)
	w := do(a, http.MethodPost, "/api/v1/admins", super,
		`{"username":"mod1","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	token := login(t, a, "mod1", "hunter22")

	// Обычный админ видит пользователей, но /admins ему закрыт.
	w = do(a, http.MethodGet, "/api/v1/users", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(a, http.MethodGet, "/api/v1/admins", token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminAccountLimit(t *testing.T) {
	a := newAPI(0)
	super := a.superToken()
	for i := 1; i <= 4; i++ {
		w := do(a, http.MethodPost, "/api/v1/admins", super,
			fmt.Sprintf(`{"username":"mod%d","password":"hunter22"}`, i))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := do(a, http.MethodPost, "/api/v1/admins", super,
		`{"username":"mod5","password":"hunter22"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminDuplicate(t *testing.T) {
	a := newAPI(0)
	super := a.superToken()
	do(a, http.MethodPost, "/api/v1/admins", super, `{"username":"mod1","password":"hunter22"}`)
	w := do(a, http.MethodPost, "/api/v1/admins", super, `{"username":"mod1","password":"other"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteAdminRevokesSessions(t *testing.T) {
	a := newAPI(0)
	super := a.superToken()
	w := do(a, http.MethodPost, "/api/v1/admins", super,
		`{"username":"mod1","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	token := login(t, a, "mod1", "hunter22")

	w = do(a, http.MethodDelete, "/api/v1/admins/mod1", super, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	// Живые сессии удалённого админа гаснут сразу.
	w = do(a, http.MethodGet, "/api/v1/users", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteUnknownAdmin(t *testing.T) {
	a := newAPI(0)
	w := do(a, http.MethodDelete, "/api/v1/admins/ghost", a.superToken(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogout(t *testing.T) {
	a := newAPI(0)
	token := a.adminToken()
	w := do(a, http.MethodPost, "/api/v1/auth/logout", token, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(a, http.MethodGet, "/api/v1/users", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogsRequireAuth(t *testing.T) {
	a := newAPI(0)
	w := do(a, http.MethodGet, "/api/v1/logs", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
