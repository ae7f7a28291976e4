// Package hub implements the live-query fan-out for chat channels.
// Consumers subscribe to a transaction ID and receive the full message
// list on every change (a wholesale resync, never a diff). Each
// delivery is authoritative: the consumer replaces its local list.
package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/psds-microservice/support-chat-service/internal/model"
	"github.com/sethvargo/go-retry"
)

// SnapshotFunc загружает полный список сообщений канала.
type SnapshotFunc func(ctx context.Context, transactionID string) ([]model.Message, error)

type Hub struct {
	snapshot   SnapshotFunc
	maxRetries uint64
	baseDelay  time.Duration

	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	gens   map[string]uint64
	closed bool
}

// Subscription доставляет снапшоты одному подписчику. Канал имеет
// буфер 1: медленный подписчик получает последний снапшот, промежуточные
// коалесцируются.
type Subscription struct {
	transactionID string
	ch            chan []model.Message

	mu      sync.Mutex
	closed  bool
	lastGen uint64
}

// Snapshots возвращает канал полных снапшотов. Канал закрывается при
// Unsubscribe или остановке hub'а.
func (s *Subscription) Snapshots() <-chan []model.Message {
	return s.ch
}

// TransactionID возвращает канал подписки.
func (s *Subscription) TransactionID() string {
	return s.transactionID
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver кладёт снапшот поколения gen, вытесняя недоставленный
// предыдущий. Снапшот старее уже доставленного отбрасывается: два
// параллельных Notify могут закончить загрузку не в том порядке, в
// каком стартовали, и медленный не должен перетирать свежий.
func (s *Subscription) deliver(snap []model.Message, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen < s.lastGen {
		return
	}
	s.lastGen = gen
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func New(snapshot SnapshotFunc, maxRetries uint64, baseDelay time.Duration) *Hub {
	return &Hub{
		snapshot:   snapshot,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		subs:       make(map[string]map[*Subscription]struct{}),
		gens:       make(map[string]uint64),
	}
}

// Subscribe регистрирует подписчика и сразу доставляет текущий снапшот —
// в том числе пустой, если сообщений ещё нет.
func (h *Hub) Subscribe(ctx context.Context, transactionID string) (*Subscription, error) {
	sub := &Subscription{
		transactionID: transactionID,
		ch:            make(chan []model.Message, 1),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, context.Canceled
	}
	set, ok := h.subs[transactionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[transactionID] = set
	}
	set[sub] = struct{}{}
	gen := h.gens[transactionID]
	h.mu.Unlock()

	// Подписка регистрируется до загрузки снапшота: Notify, пришедший во
	// время запроса, доставит более свежее поколение и не потеряется, а
	// наш снапшот с текущим поколением тогда отбросится в deliver.
	snap, err := h.loadSnapshot(ctx, transactionID)
	if err != nil {
		h.Unsubscribe(sub)
		return nil, err
	}
	sub.deliver(snap, gen)
	return sub, nil
}

// Unsubscribe снимает подписку и закрывает её канал. Обязателен при
// закрытии соединения, иначе подписка живёт вечно.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if set, ok := h.subs[sub.transactionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.transactionID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Notify перечитывает канал и рассылает снапшот всем его подписчикам.
// Каждый Notify получает следующее поколение канала: снапшоты всегда
// сходятся к самому свежему, в каком бы порядке ни закончились
// параллельные загрузки. Ошибка запроса ретраится с экспоненциальной
// задержкой; после исчерпания попыток подписчики остаются на прежнем
// снапшоте.
func (h *Hub) Notify(ctx context.Context, transactionID string) {
	h.mu.Lock()
	if h.closed || len(h.subs[transactionID]) == 0 {
		h.mu.Unlock()
		return
	}
	h.gens[transactionID]++
	gen := h.gens[transactionID]
	h.mu.Unlock()

	snap, err := h.loadSnapshot(ctx, transactionID)
	if err != nil {
		log.Printf("hub: snapshot %s: %v", transactionID, err)
		return
	}
	h.mu.RLock()
	for sub := range h.subs[transactionID] {
		sub.deliver(snap, gen)
	}
	h.mu.RUnlock()
}

// NotifyAsync — Notify в отдельной горутине, не блокирует запрос.
func (h *Hub) NotifyAsync(transactionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		h.Notify(ctx, transactionID)
	}()
}

// SubscriberCount возвращает число подписчиков канала.
func (h *Hub) SubscriberCount(transactionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[transactionID])
}

// Close закрывает все подписки; hub больше не принимает новых.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			sub.close()
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})
	h.gens = make(map[string]uint64)
}

func (h *Hub) loadSnapshot(ctx context.Context, transactionID string) ([]model.Message, error) {
	backoff := retry.WithMaxRetries(h.maxRetries, retry.NewExponential(h.baseDelay))
	var snap []model.Message
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		items, err := h.snapshot(ctx, transactionID)
		if err != nil {
			return retry.RetryableError(err)
		}
		snap = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = []model.Message{}
	}
	return snap, nil
}
