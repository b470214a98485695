package assistant

import (
	"github.com/tsiory/mpanampy/internal/conversation"
	"github.com/tsiory/mpanampy/internal/locale"
)

// EventType enumerates the widget-visible state transitions.
type EventType string

const (
	// EventMessage fires for every message appended to the log.
	EventMessage EventType = "message"
	// EventAwaiting fires when the "thinking" indicator flips.
	EventAwaiting EventType = "awaiting"
	// EventSuggestions fires when a new suggestion batch is drawn.
	EventSuggestions EventType = "suggestions"
	// EventCleared fires after an explicit conversation reset.
	EventCleared EventType = "cleared"
	// EventLanguage fires after the active language changes.
	EventLanguage EventType = "language"
)

// Event is pushed to widget subscribers (the websocket layer).
type Event struct {
	Type        EventType             `json:"type"`
	WidgetID    string                `json:"widget_id"`
	Message     *conversation.Message `json:"message,omitempty"`
	Awaiting    bool                  `json:"awaiting,omitempty"`
	Suggestions []string              `json:"suggestions,omitempty"`
	Language    locale.Language       `json:"language,omitempty"`
}
