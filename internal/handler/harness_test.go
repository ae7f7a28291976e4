package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-chat-service/internal/auth"
	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/handler"
	"github.com/psds-microservice/support-chat-service/internal/hub"
	"github.com/psds-microservice/support-chat-service/internal/model"
	"github.com/psds-microservice/support-chat-service/internal/ratelimit"
	"github.com/psds-microservice/support-chat-service/internal/router"
	"gorm.io/gorm"
)

// Память вместо Postgres: фейки повторяют контракт сервисов, чтобы
// гонять хендлеры и роутер без базы.

type memUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]model.User)}
}

func (s *memUsers) Create(ctx context.Context, u *model.User) error {
	if !model.ValidAccountStatus(u.AccountStatus) {
		return errs.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.UserID]; ok {
		return gorm.ErrDuplicatedKey
	}
	u.Version = 1
	u.CreatedAt = time.Now()
	s.users[u.UserID] = *u
	return nil
}

func (s *memUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return &u, nil
}

func (s *memUsers) List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, int64(len(out)), nil
}

func (s *memUsers) Overwrite(ctx context.Context, id string, u *model.User) (*model.User, error) {
	if !model.ValidAccountStatus(u.AccountStatus) {
		return nil, errs.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	if cur.Version != u.Version {
		return nil, errs.ErrVersionConflict
	}
	next := *u
	next.UserID = id
	next.Version = cur.Version + 1
	next.CreatedAt = cur.CreatedAt
	s.users[id] = next
	return &next, nil
}

func (s *memUsers) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errs.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

type memMessages struct {
	mu       sync.Mutex
	nextID   uint64
	maxBytes int
	items    []model.Message
	cleanups []string
}

func newMemMessages(maxBytes int) *memMessages {
	return &memMessages{maxBytes: maxBytes}
}

func (s *memMessages) Validate(m *model.Message) error {
	if !model.ValidSender(m.Sender) {
		return errs.ErrInvalidSender
	}
	if len(m.Text) > s.maxBytes {
		return errs.ErrMessageTooLarge
	}
	return nil
}

func (s *memMessages) Append(ctx context.Context, m *model.Message) error {
	if err := s.Validate(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = time.Now()
	s.items = append(s.items, *m)
	return nil
}

func (s *memMessages) ListByTransaction(ctx context.Context, transactionID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, 0)
	for _, m := range s.items {
		if m.TransactionID == transactionID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memMessages) CascadeCleanup(ctx context.Context, transactionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, transactionID)
	var kept []model.Message
	var deleted int64
	for _, m := range s.items {
		if m.TransactionID == transactionID {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.items = kept
	return deleted, nil
}

func (s *memMessages) cleanupCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cleanups...)
}

type memAdmins struct {
	mu     sync.Mutex
	limit  int
	admins map[string]model.Admin
	passes map[string]string
}

func newMemAdmins(limit int) *memAdmins {
	return &memAdmins{
		limit:  limit,
		admins: make(map[string]model.Admin),
		passes: make(map[string]string),
	}
}

func (s *memAdmins) Create(ctx context.Context, username, password string, super bool) (*model.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.admins) >= s.limit {
		return nil, errs.ErrAdminLimit
	}
	if _, ok := s.admins[username]; ok {
		return nil, errs.ErrAdminExists
	}
	admin := model.Admin{Username: username, SuperAdmin: super, CreatedAt: time.Now()}
	s.admins[username] = admin
	s.passes[username] = password
	return &admin, nil
}

func (s *memAdmins) Authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	admin, ok := s.admins[username]
	if !ok || s.passes[username] != password {
		return nil, errs.ErrBadCredentials
	}
	return &admin, nil
}

func (s *memAdmins) List(ctx context.Context) ([]model.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Admin
	for _, a := range s.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *memAdmins) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[username]; !ok {
		return errs.ErrAdminNotFound
	}
	delete(s.admins, username)
	delete(s.passes, username)
	return nil
}

type memLogs struct {
	mu    sync.Mutex
	items []model.ModLog
}

func (s *memLogs) Append(ctx context.Context, adminName, action, affectedUsername, affectedUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, model.ModLog{
		ID:               uint64(len(s.items) + 1),
		AdminName:        adminName,
		Action:           action,
		AffectedUsername: affectedUsername,
		AffectedUserID:   affectedUserID,
		Timestamp:        time.Now().Format(time.RFC1123),
		CreatedAt:        time.Now(),
	})
	return nil
}

func (s *memLogs) List(ctx context.Context, limit, offset int) ([]model.ModLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ModLog(nil), s.items...), int64(len(s.items)), nil
}

func (s *memLogs) entries() []model.ModLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ModLog(nil), s.items...)
}

type recordedEvent struct {
	Name    string
	Payload map[string]interface{}
}

type memEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *memEvents) ProduceEvent(ctx context.Context, event string, payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{Name: event, Payload: payload})
}

func (s *memEvents) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Name)
	}
	return out
}

type stubFetcher struct {
	body []byte
	err  error
}

func (f *stubFetcher) FetchUser(ctx context.Context, id string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

// api собирает полный роутер на фейках.
type api struct {
	http     http.Handler
	users    *memUsers
	messages *memMessages
	admins   *memAdmins
	logs     *memLogs
	events   *memEvents
	fetcher  *stubFetcher
	sessions *auth.SessionStore
	hub      *hub.Hub
}

const (
	testSuperUser = "root"
	testSuperPass = "swordfish"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAPI(ratePerMin int) *api {
	a := &api{
		users:    newMemUsers(),
		messages: newMemMessages(1024),
		admins:   newMemAdmins(4),
		logs:     &memLogs{},
		events:   &memEvents{},
		fetcher:  &stubFetcher{},
		sessions: auth.NewSessionStore(time.Hour),
	}
	a.hub = hub.New(a.messages.ListByTransaction, 3, time.Millisecond)
	a.http = router.New(router.Deps{
		Users:    handler.NewUserHandler(a.users, a.messages, a.logs, a.events, a.hub),
		Messages: handler.NewMessageHandler(a.messages, ratelimit.NewPerKey(ratePerMin), a.hub, a.events),
		WS:       handler.NewWSHandler(a.hub),
		Admins:   handler.NewAdminHandler(a.admins, a.logs, a.sessions, testSuperUser, testSuperPass),
		Lookup:   handler.NewLookupHandler(a.fetcher),
		Sessions: a.sessions,
	})
	return a
}

func (a *api) adminToken() string {
	return a.sessions.Issue("mod1", false).Token
}

func (a *api) superToken() string {
	return a.sessions.Issue(testSuperUser, true).Token
}
