package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tsiory/mpanampy/internal/conversation"
	"github.com/tsiory/mpanampy/internal/emphasis"
	"github.com/tsiory/mpanampy/internal/kvstore"
	"github.com/tsiory/mpanampy/internal/locale"
	"github.com/tsiory/mpanampy/internal/matching"
	"github.com/tsiory/mpanampy/internal/observability"
	"github.com/tsiory/mpanampy/internal/suggest"
)

var (
	// ErrEmptyMessage rejects a submit whose text trims to nothing.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrTurnInFlight rejects a submit while another turn is running.
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

const (
	messagesKeyPrefix = "chat:messages:"
	languageKeyPrefix = "chat:lang:"

	// Bot messages must be recorded even when the request context is
	// gone; persistence gets its own budget.
	saveTimeout = 2 * time.Second
)

// Controller runs the conversation of a single widget. It is the only
// unit that mutates the conversation log and the suggestion batch.
// One accepted submit always appends exactly two messages (user then
// bot) and consumes two consecutive ids, on every outcome including
// the error path.
type Controller struct {
	widgetID string
	engine   *matching.Engine
	kv       kvstore.Store
	store    *conversation.Store
	rotator  *suggest.Rotator
	metrics  *observability.Metrics

	replyDelay      time.Duration
	suggestionCount int

	mu          sync.Mutex
	busy        bool
	language    locale.Language
	suggestions []string
	hook        func(Event)
}

// ControllerConfig carries the per-widget settings.
type ControllerConfig struct {
	WidgetID        string
	Language        locale.Language
	ReplyDelay      time.Duration
	SuggestionCount int
}

func NewController(
	cfg ControllerConfig,
	engine *matching.Engine,
	kv kvstore.Store,
	rotator *suggest.Rotator,
	metrics *observability.Metrics,
) *Controller {
	count := cfg.SuggestionCount
	if count <= 0 {
		count = suggest.DefaultBatchSize
	}
	return &Controller{
		widgetID:        cfg.WidgetID,
		engine:          engine,
		kv:              kv,
		store:           conversation.NewStore(kv, messagesKeyPrefix+cfg.WidgetID),
		rotator:         rotator,
		metrics:         metrics,
		replyDelay:      cfg.ReplyDelay,
		suggestionCount: count,
		language:        cfg.Language,
	}
}

// Start restores the widget's language preference and conversation
// history from durable storage and draws the first suggestion batch.
// Restore failures degrade to a fresh state; Start never fails.
func (c *Controller) Start(ctx context.Context) {
	lang := c.language
	if data, err := c.kv.Get(ctx, languageKeyPrefix+c.widgetID); err == nil {
		if stored, err := locale.Parse(string(data)); err == nil {
			lang = stored
		}
	}

	c.store.Load(ctx, lang)

	c.mu.Lock()
	c.language = lang
	c.suggestions = c.rotator.Sample(lang, c.suggestionCount)
	c.mu.Unlock()
}

// SetEventHook registers the listener for widget events. Events are
// emitted synchronously; the hook must not block.
func (c *Controller) SetEventHook(hook func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = hook
}

// Submit runs one full turn: append the user message, wait the reply
// delay, pick the response (match, fallback or error text), append the
// bot message and redraw suggestions. It blocks until the turn settles.
// Once accepted a turn always completes; a cancelled context switches
// the outcome to the localized error reply instead of aborting.
func (c *Controller) Submit(ctx context.Context, text string) (user, bot conversation.Message, err error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return conversation.Message{}, conversation.Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return conversation.Message{}, conversation.Message{}, ErrTurnInFlight
	}
	c.busy = true
	lang := c.language
	c.mu.Unlock()

	started := time.Now()

	user = c.append(ctx, trimmed, conversation.SenderUser)
	c.emit(Event{Type: EventMessage, WidgetID: c.widgetID, Message: &user})
	c.emit(Event{Type: EventAwaiting, WidgetID: c.widgetID, Awaiting: true})

	replyText, outcome := c.resolveReply(ctx, trimmed, lang)

	// The request context may be gone on the error path; persist the
	// bot message on its own budget so the two-message invariant holds.
	saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	bot = c.append(saveCtx, replyText, conversation.SenderBot)
	cancel()
	c.emit(Event{Type: EventMessage, WidgetID: c.widgetID, Message: &bot})

	c.mu.Lock()
	c.busy = false
	c.suggestions = c.rotator.Sample(lang, c.suggestionCount)
	batch := append([]string(nil), c.suggestions...)
	c.mu.Unlock()

	c.emit(Event{Type: EventAwaiting, WidgetID: c.widgetID, Awaiting: false})
	c.emit(Event{Type: EventSuggestions, WidgetID: c.widgetID, Suggestions: batch})

	c.metrics.Turns.WithLabelValues(outcome).Inc()
	c.metrics.ObserveTurnDuration(time.Since(started))

	return user, bot, nil
}

func (c *Controller) resolveReply(ctx context.Context, query string, lang locale.Language) (string, string) {
	timer := time.NewTimer(c.replyDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return locale.ErrorReply(lang), "error"
	}

	entry, score, ok := c.engine.BestMatch(query, lang)
	c.metrics.BestMatchScore.Observe(float64(score))
	if !ok {
		return locale.Fallback(lang), "fallback"
	}
	return emphasis.Apply(entry.Answer), "matched"
}

// Clear resets the conversation to a single localized welcome message
// and removes the durable record. Rejected while a turn is in flight.
func (c *Controller) Clear(ctx context.Context) (conversation.Message, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return conversation.Message{}, ErrTurnInFlight
	}
	lang := c.language
	c.mu.Unlock()

	welcome, err := c.store.Clear(ctx, lang)
	if err != nil {
		log.Printf("assistant: clear persistence failed for widget %s: %v", c.widgetID, err)
		c.metrics.StoreErrors.WithLabelValues("clear").Inc()
	}
	c.emit(Event{Type: EventCleared, WidgetID: c.widgetID, Message: &welcome})
	return welcome, nil
}

// SetLanguage switches the active language: the preference is
// persisted, suggestions are redrawn, and a conversation still at its
// welcome seed is re-localized.
func (c *Controller) SetLanguage(ctx context.Context, lang locale.Language) {
	c.mu.Lock()
	c.language = lang
	c.suggestions = c.rotator.Sample(lang, c.suggestionCount)
	batch := append([]string(nil), c.suggestions...)
	c.mu.Unlock()

	if err := c.kv.Set(ctx, languageKeyPrefix+c.widgetID, []byte(lang)); err != nil {
		log.Printf("assistant: language persistence failed for widget %s: %v", c.widgetID, err)
		c.metrics.StoreErrors.WithLabelValues("language").Inc()
	}

	welcome, reseeded, err := c.store.Reseed(ctx, lang)
	if err != nil {
		log.Printf("assistant: welcome reseed persistence failed for widget %s: %v", c.widgetID, err)
		c.metrics.StoreErrors.WithLabelValues("reseed").Inc()
	}

	c.emit(Event{Type: EventLanguage, WidgetID: c.widgetID, Language: lang, Suggestions: batch})
	if reseeded {
		c.emit(Event{Type: EventMessage, WidgetID: c.widgetID, Message: &welcome})
	}
}

// Messages returns a copy of the conversation log.
func (c *Controller) Messages() []conversation.Message {
	return c.store.Messages()
}

// Suggestions returns the current batch.
func (c *Controller) Suggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.suggestions...)
}

// Language returns the active language.
func (c *Controller) Language() locale.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// Awaiting reports whether a turn is in flight.
func (c *Controller) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// WidgetID returns the widget this controller belongs to.
func (c *Controller) WidgetID() string {
	return c.widgetID
}

func (c *Controller) append(ctx context.Context, text string, sender conversation.Sender) conversation.Message {
	msg, err := c.store.Append(ctx, text, sender)
	if err != nil {
		// Best-effort persistence: the in-memory log is already updated.
		log.Printf("assistant: append persistence failed for widget %s: %v", c.widgetID, err)
		c.metrics.StoreErrors.WithLabelValues("append").Inc()
	}
	return msg
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
}
