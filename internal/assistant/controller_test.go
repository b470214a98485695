package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tsiory/mpanampy/internal/conversation"
	"github.com/tsiory/mpanampy/internal/emphasis"
	"github.com/tsiory/mpanampy/internal/knowledge"
	"github.com/tsiory/mpanampy/internal/kvstore"
	"github.com/tsiory/mpanampy/internal/locale"
	"github.com/tsiory/mpanampy/internal/matching"
	"github.com/tsiory/mpanampy/internal/observability"
	"github.com/tsiory/mpanampy/internal/suggest"
)

var metricsSeq atomic.Int64

// Prometheus instruments register globally, so every test gets its own
// namespace.
func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_assistant_%d", metricsSeq.Add(1)))
}

func testEngine() *matching.Engine {
	return matching.NewEngine(knowledge.NewCorpus([]knowledge.Entry{
		{
			ID:       "hist-1",
			Question: "Qui est Ali Tawarath ?",
			Answer:   "Ali Tawarath est l'ancêtre des Anakara.",
			Keywords: []string{"Ali Tawarath"},
			Language: locale.French,
			Category: "histoire",
		},
	}))
}

func newTestController(kv kvstore.Store, widgetID string) *Controller {
	return NewController(ControllerConfig{
		WidgetID:   widgetID,
		Language:   locale.French,
		ReplyDelay: time.Millisecond,
	}, testEngine(), kv, suggest.NewRotator(), newTestMetrics())
}

func TestSubmitMatchedTurn(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	user, bot, err := c.Submit(ctx, "Qui est Ali Tawarath ?")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if user.Sender != conversation.SenderUser || bot.Sender != conversation.SenderBot {
		t.Fatalf("senders = %q,%q, want user,bot", user.Sender, bot.Sender)
	}
	if bot.ID != user.ID+1 {
		t.Fatalf("bot id = %d, want user id + 1 = %d", bot.ID, user.ID+1)
	}

	want := emphasis.Apply("Ali Tawarath est l'ancêtre des Anakara.")
	if bot.Text != want {
		t.Fatalf("bot text = %q, want enhanced answer %q", bot.Text, want)
	}
}

func TestSubmitFallbackTurn(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	_, bot, err := c.Submit(ctx, "zzxqq unrelated text")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if bot.Text != locale.Fallback(locale.French) {
		t.Fatalf("bot text = %q, want french fallback", bot.Text)
	}
}

func TestSubmitErrorPathStillCompletesTurn(t *testing.T) {
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(context.Background())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	user, bot, err := c.Submit(cancelled, "Qui est Ali Tawarath ?")
	if err != nil {
		t.Fatalf("Submit() error = %v, turn failures must not surface", err)
	}
	if bot.Text != locale.ErrorReply(locale.French) {
		t.Fatalf("bot text = %q, want french error reply", bot.Text)
	}
	// The error path consumes the same two consecutive ids as a normal turn.
	if user.ID != 1 || bot.ID != 2 {
		t.Fatalf("ids = %d,%d, want 1,2", user.ID, bot.ID)
	}
	if c.Awaiting() {
		t.Fatalf("Awaiting() = true after a settled turn")
	}
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	if _, _, err := c.Submit(ctx, "   \n\t"); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Submit() error = %v, want ErrEmptyMessage", err)
	}
	if len(c.Messages()) != 1 {
		t.Fatalf("rejected submit must not append messages, log len = %d", len(c.Messages()))
	}
}

func TestSubmitSingleFlightGuard(t *testing.T) {
	ctx := context.Background()
	c := NewController(ControllerConfig{
		WidgetID:   "w1",
		Language:   locale.French,
		ReplyDelay: 150 * time.Millisecond,
	}, testEngine(), kvstore.NewInMemoryStore(), suggest.NewRotator(), newTestMetrics())
	c.Start(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = c.Submit(ctx, "première question")
	}()

	deadline := time.Now().Add(time.Second)
	for !c.Awaiting() {
		if time.Now().After(deadline) {
			t.Fatalf("first turn never entered awaiting state")
		}
		time.Sleep(time.Millisecond)
	}

	if _, _, err := c.Submit(ctx, "deuxième question"); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("Submit() during turn error = %v, want ErrTurnInFlight", err)
	}
	<-done

	// 1 seed + 2 for the single accepted turn.
	if got := len(c.Messages()); got != 3 {
		t.Fatalf("log len = %d, want 3", got)
	}
}

func TestSubmitIDMonotonicity(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	const turns = 4
	for i := 0; i < turns; i++ {
		if _, _, err := c.Submit(ctx, fmt.Sprintf("question %d sans réponse", i)); err != nil {
			t.Fatalf("Submit() #%d error = %v", i, err)
		}
	}

	msgs := c.Messages()
	if len(msgs) != 2*turns+1 {
		t.Fatalf("log len = %d, want %d", len(msgs), 2*turns+1)
	}
	for i, m := range msgs {
		if m.ID != i {
			t.Fatalf("messages[%d].ID = %d, want %d (strictly increasing from 0)", i, m.ID, i)
		}
	}
}

func TestSubmitRefreshesSuggestions(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	if got := len(c.Suggestions()); got != suggest.DefaultBatchSize {
		t.Fatalf("initial batch size = %d, want %d", got, suggest.DefaultBatchSize)
	}
	if _, _, err := c.Submit(ctx, "une question"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := len(c.Suggestions()); got != suggest.DefaultBatchSize {
		t.Fatalf("batch size after turn = %d, want %d", got, suggest.DefaultBatchSize)
	}
}

func TestClearReseedsWelcome(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	if _, _, err := c.Submit(ctx, "une question"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	welcome, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if welcome.ID != 0 || welcome.Text != locale.Welcome(locale.French) {
		t.Fatalf("Clear() welcome = %+v", welcome)
	}
	if got := len(c.Messages()); got != 1 {
		t.Fatalf("log len after clear = %d, want 1", got)
	}
}

func TestSetLanguageRelocalizesFreshWelcome(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	c.SetLanguage(ctx, locale.English)
	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Text != locale.Welcome(locale.English) {
		t.Fatalf("welcome after language change = %+v, want english welcome", msgs)
	}
	if c.Language() != locale.English {
		t.Fatalf("Language() = %q, want en", c.Language())
	}
}

func TestSetLanguageKeepsActiveConversation(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	if _, _, err := c.Submit(ctx, "une question"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	before := len(c.Messages())
	c.SetLanguage(ctx, locale.Malagasy)
	after := c.Messages()
	if len(after) != before {
		t.Fatalf("log len changed from %d to %d on language switch", before, len(after))
	}
	if after[0].Text == locale.Welcome(locale.Malagasy) {
		t.Fatalf("welcome of an active conversation must not be re-localized")
	}
}

func TestLanguagePreferenceSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewInMemoryStore()

	c := newTestController(kv, "w1")
	c.Start(ctx)
	c.SetLanguage(ctx, locale.Malagasy)

	revived := newTestController(kv, "w1")
	revived.Start(ctx)
	if revived.Language() != locale.Malagasy {
		t.Fatalf("restored Language() = %q, want mg", revived.Language())
	}
}

func TestSubmitEmitsEventSequence(t *testing.T) {
	ctx := context.Background()
	c := newTestController(kvstore.NewInMemoryStore(), "w1")
	c.Start(ctx)

	var got []EventType
	c.SetEventHook(func(ev Event) { got = append(got, ev.Type) })

	if _, _, err := c.Submit(ctx, "Qui est Ali Tawarath ?"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	want := []EventType{EventMessage, EventAwaiting, EventMessage, EventAwaiting, EventSuggestions}
	if len(got) != len(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
