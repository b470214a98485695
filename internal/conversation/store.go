package conversation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tsiory/mpanampy/internal/kvstore"
	"github.com/tsiory/mpanampy/internal/locale"
)

// Store owns the conversation state for one widget and mirrors every
// mutation to the durable key-value layer. The in-memory log is the
// source of truth during a session; storage is best-effort write-through.
type Store struct {
	kv  kvstore.Store
	key string

	mu       sync.RWMutex
	messages []Message
	nextID   int
}

// NewStore binds a conversation log to its durable key. Call Load
// before anything else to restore or seed the state.
func NewStore(kv kvstore.Store, key string) *Store {
	return &Store{kv: kv, key: key}
}

// Load restores the log from durable storage. An absent or unparsable
// record is treated as no history: the log is seeded with the welcome
// message for lang at id 0. Load never fails.
func (s *Store) Load(ctx context.Context, lang locale.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.seedLocked(lang)
		return
	}

	var stored []storedMessage
	if err := json.Unmarshal(data, &stored); err != nil || len(stored) == 0 {
		s.seedLocked(lang)
		return
	}

	msgs := make([]Message, 0, len(stored))
	nextID := 0
	for _, sm := range stored {
		m, ok := fromStored(sm)
		if !ok {
			s.seedLocked(lang)
			return
		}
		msgs = append(msgs, m)
		if m.ID >= nextID {
			nextID = m.ID + 1
		}
	}
	s.messages = msgs
	s.nextID = nextID
}

// Append creates the next message with text and sender, adds it to the
// log and writes the whole log through to storage. The in-memory state
// is updated even when the write fails; the error is informational.
func (s *Store) Append(ctx context.Context, text string, sender Sender) (Message, error) {
	s.mu.Lock()
	m := Message{
		ID:        s.nextID,
		Text:      text,
		Sender:    sender,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	s.messages = append(s.messages, m)
	s.nextID++
	data := s.encodeLocked()
	s.mu.Unlock()

	return m, s.kv.Set(ctx, s.key, data)
}

// Clear resets the log to a single welcome message for lang and deletes
// the durable record. It is idempotent.
func (s *Store) Clear(ctx context.Context, lang locale.Language) (Message, error) {
	s.mu.Lock()
	s.seedLocked(lang)
	welcome := s.messages[0]
	s.mu.Unlock()

	return welcome, s.kv.Delete(ctx, s.key)
}

// Reseed replaces a log that holds only the welcome seed with the
// welcome message of another language, persisting the new seed. Logs
// with any user activity are left untouched.
func (s *Store) Reseed(ctx context.Context, lang locale.Language) (Message, bool, error) {
	s.mu.Lock()
	if len(s.messages) != 1 || s.messages[0].Sender != SenderBot {
		s.mu.Unlock()
		return Message{}, false, nil
	}
	s.seedLocked(lang)
	welcome := s.messages[0]
	data := s.encodeLocked()
	s.mu.Unlock()

	return welcome, true, s.kv.Set(ctx, s.key, data)
}

// Messages returns a copy of the log in append order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the current log length.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// NextID reports the id the next appended message will receive.
func (s *Store) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

func (s *Store) seedLocked(lang locale.Language) {
	s.messages = []Message{{
		ID:        0,
		Text:      locale.Welcome(lang),
		Sender:    SenderBot,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}}
	s.nextID = 1
}

func (s *Store) encodeLocked() []byte {
	stored := make([]storedMessage, len(s.messages))
	for i, m := range s.messages {
		stored[i] = toStored(m)
	}
	data, _ := json.Marshal(stored)
	return data
}
