// Package banner — состояние предупреждающего баннера одной вкладки.
//
// Баннер только информирует: он не блокирует страницу. Состояние меняется
// исключительно сообщениями от поллера и кнопкой "Got it".
package banner

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/sitematch"
)

// Event — что вкладке нужно сделать с DOM после сообщения.
type Event int

const (
	EventNone Event = iota
	EventShow
	EventHide
)

func (e Event) String() string {
	switch e {
	case EventShow:
		return "show"
	case EventHide:
		return "hide"
	default:
		return "none"
	}
}

// Content — текст баннера.
type Content struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Site  SiteInfo `json:"site"`
}

type Banner struct {
	host          string
	missionActive bool
	allowed       []string
	shown         bool
}

// New создает баннер для страницы. pageURL может быть полным адресом или голым hostname.
func New(pageURL string) *Banner {
	return &Banner{host: hostname(pageURL), allowed: []string{}}
}

func hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(raw)
}

func (b *Banner) Host() string { return b.host }

func (b *Banner) Shown() bool { return b.shown }

// Handle применяет MISSION_UPDATE или ответ на GET_MISSION_STATUS.
func (b *Banner) Handle(msg domain.TabMessage) Event {
	if msg.Type != domain.MsgMissionUpdate && msg.Type != domain.MsgMissionStatus {
		return EventNone
	}
	state := msg.State()
	b.missionActive = state.IsActive
	b.allowed = state.AllowedSites
	return b.evaluate()
}

func (b *Banner) evaluate() Event {
	if !b.missionActive {
		if b.shown {
			b.shown = false
			return EventHide
		}
		return EventNone
	}

	allowed := sitematch.IsAllowed(b.host, b.allowed)
	switch {
	case !allowed && !b.shown:
		b.shown = true
		return EventShow
	case allowed && b.shown:
		b.shown = false
		return EventHide
	}
	return EventNone
}

// Dismiss — кнопка "Got it". Следующее сообщение от поллера снова пересчитает баннер.
func (b *Banner) Dismiss() Event {
	if !b.shown {
		return EventNone
	}
	b.shown = false
	return EventHide
}

func (b *Banner) Content() Content {
	site := LookupSite(b.host)
	return Content{
		Title: "You're Distracted from Your Mission!",
		Text:  fmt.Sprintf("%s %s is not in your allowed list. Stay focused!", site.Icon, site.Name),
		Site:  site,
	}
}
