package shield

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/xela07ax/mindtussle/internal/domain"
)

// Служебные страницы браузера: туда контент-скрипт не внедряется
var reservedPrefixes = []string{
	"chrome://", "chrome-extension://", "edge://", "about:", "devtools://",
}

// IsReservedURL — вкладка, которой не рассылаются обновления миссии.
func IsReservedURL(url string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

// Tab — подключенная вкладка.
type Tab struct {
	ID   string
	URL  string
	Send chan domain.TabMessage
}

// Hub — реестр вкладок и рассылка MISSION_UPDATE.
type Hub struct {
	mu   sync.RWMutex
	tabs map[string]*Tab
}

func NewHub() *Hub {
	return &Hub{tabs: map[string]*Tab{}}
}

func (h *Hub) Register(url string, buffer int) *Tab {
	if buffer <= 0 {
		buffer = 8
	}
	t := &Tab{ID: uuid.NewString(), URL: url, Send: make(chan domain.TabMessage, buffer)}
	h.mu.Lock()
	h.tabs[t.ID] = t
	h.mu.Unlock()
	return t
}

func (h *Hub) Unregister(t *Tab) {
	h.mu.Lock()
	_, exists := h.tabs[t.ID]
	if exists {
		delete(h.tabs, t.ID)
	}
	h.mu.Unlock()
	if exists {
		close(t.Send)
	}
}

// Broadcast рассылает сообщение всем вкладкам с обычным URL.
// Медленная вкладка не блокирует остальных: сообщение ей просто не доставляется.
func (h *Hub) Broadcast(msg domain.TabMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, t := range h.tabs {
		if t.URL == "" || IsReservedURL(t.URL) {
			continue
		}
		select {
		case t.Send <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tabs)
}
