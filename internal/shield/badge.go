package shield

import "sync"

const (
	BadgeActiveText  = "🎯"
	BadgeActiveColor = "#10b981"
)

// BadgeState — индикатор на иконке расширения.
type BadgeState struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

type Badge struct {
	mu    sync.RWMutex
	state BadgeState
}

// Set показывает индикатор, пока миссия активна, и очищает его иначе.
func (b *Badge) Set(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if active {
		b.state = BadgeState{Text: BadgeActiveText, Color: BadgeActiveColor}
		return
	}
	b.state = BadgeState{}
}

func (b *Badge) Get() BadgeState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
