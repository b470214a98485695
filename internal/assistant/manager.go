package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tsiory/mpanampy/internal/kvstore"
	"github.com/tsiory/mpanampy/internal/locale"
	"github.com/tsiory/mpanampy/internal/matching"
	"github.com/tsiory/mpanampy/internal/observability"
	"github.com/tsiory/mpanampy/internal/suggest"
)

// ErrNotFound reports that no widget session is live for an id.
var ErrNotFound = errors.New("widget session not found")

const defaultInactivityTimeout = 30 * time.Minute

// ManagerConfig carries the widget-wide settings.
type ManagerConfig struct {
	DefaultLanguage   locale.Language
	ReplyDelay        time.Duration
	SuggestionCount   int
	InactivityTimeout time.Duration
}

// Manager owns the live widget sessions. Idle sessions are evicted by
// the janitor; their durable conversation record survives, so a
// returning widget id restores its history on the next Acquire.
type Manager struct {
	cfg     ManagerConfig
	engine  *matching.Engine
	kv      kvstore.Store
	rotator *suggest.Rotator
	metrics *observability.Metrics

	mu        sync.RWMutex
	widgets   map[string]*widgetEntry
	nextSubID int
}

type widgetEntry struct {
	ctrl         *Controller
	lastActivity time.Time
	subs         map[int]chan Event
}

func NewManager(
	cfg ManagerConfig,
	engine *matching.Engine,
	kv kvstore.Store,
	rotator *suggest.Rotator,
	metrics *observability.Metrics,
) *Manager {
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = defaultInactivityTimeout
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = locale.French
	}
	return &Manager{
		cfg:     cfg,
		engine:  engine,
		kv:      kv,
		rotator: rotator,
		metrics: metrics,
		widgets: make(map[string]*widgetEntry),
	}
}

// Acquire returns the live controller for widgetID, creating and
// restoring one when none is live. An empty widgetID starts a brand new
// widget session. lang overrides the default for fresh sessions only;
// a persisted preference always wins.
func (m *Manager) Acquire(ctx context.Context, widgetID string, lang locale.Language) *Controller {
	if lang == "" {
		lang = m.cfg.DefaultLanguage
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if widgetID == "" {
		widgetID = uuid.NewString()
	} else if entry, ok := m.widgets[widgetID]; ok {
		entry.lastActivity = time.Now().UTC()
		return entry.ctrl
	}

	ctrl := NewController(ControllerConfig{
		WidgetID:        widgetID,
		Language:        lang,
		ReplyDelay:      m.cfg.ReplyDelay,
		SuggestionCount: m.cfg.SuggestionCount,
	}, m.engine, m.kv, m.rotator, m.metrics)
	ctrl.Start(ctx)
	ctrl.SetEventHook(func(ev Event) { m.publish(ev) })

	m.widgets[widgetID] = &widgetEntry{
		ctrl:         ctrl,
		lastActivity: time.Now().UTC(),
		subs:         make(map[int]chan Event),
	}
	m.metrics.WidgetEvents.WithLabelValues("created").Inc()
	m.metrics.ActiveWidgets.Set(float64(len(m.widgets)))
	return ctrl
}

// Get returns the live controller for widgetID and refreshes its
// activity clock.
func (m *Manager) Get(widgetID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.widgets[widgetID]
	if !ok {
		return nil, ErrNotFound
	}
	entry.lastActivity = time.Now().UTC()
	return entry.ctrl, nil
}

// Subscribe registers an event listener for a live widget session. The
// returned cancel func must be called when the listener goes away; the
// channel is closed on cancel and on session eviction.
func (m *Manager) Subscribe(widgetID string) (<-chan Event, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.widgets[widgetID]
	if !ok {
		return nil, nil, ErrNotFound
	}

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Event, 64)
	entry.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.widgets[widgetID]; ok {
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		}
	}
	return ch, cancel, nil
}

// ActiveCount reports how many widget sessions are live.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.widgets)
}

// StartJanitor evicts idle widget sessions in the background until ctx
// is cancelled.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictIdle()
			}
		}
	}()
}

func (m *Manager) evictIdle() {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.widgets {
		if now.Sub(entry.lastActivity) < m.cfg.InactivityTimeout {
			continue
		}
		// Never evict mid-turn; the next sweep will catch it.
		if entry.ctrl.Awaiting() {
			continue
		}
		for subID, ch := range entry.subs {
			delete(entry.subs, subID)
			close(ch)
		}
		delete(m.widgets, id)
		m.metrics.WidgetEvents.WithLabelValues("expired").Inc()
	}
	m.metrics.ActiveWidgets.Set(float64(len(m.widgets)))
}

func (m *Manager) publish(ev Event) {
	m.mu.RLock()
	entry, ok := m.widgets[ev.WidgetID]
	if !ok {
		m.mu.RUnlock()
		return
	}
	chans := make([]chan Event, 0, len(entry.subs))
	for _, ch := range entry.subs {
		chans = append(chans, ch)
	}
	m.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
			m.metrics.WSEvents.WithLabelValues(string(ev.Type), "queued").Inc()
		default:
			// Slow subscribers lose events rather than stalling a turn.
			m.metrics.WSEvents.WithLabelValues(string(ev.Type), "dropped").Inc()
		}
	}
}
