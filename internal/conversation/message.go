package conversation

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one immutable entry in the conversation log. Within a
// conversation, ids are unique and strictly increasing from 0; the id 0
// message is always the bot welcome seed.
type Message struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

// storedMessage is the durable wire form. Timestamps are persisted as
// unix milliseconds so they round-trip exactly at that precision.
type storedMessage struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
	AtMS   int64  `json:"at_ms"`
}

func toStored(m Message) storedMessage {
	return storedMessage{
		ID:     m.ID,
		Text:   m.Text,
		Sender: string(m.Sender),
		AtMS:   m.CreatedAt.UnixMilli(),
	}
}

func fromStored(s storedMessage) (Message, bool) {
	sender := Sender(s.Sender)
	if sender != SenderUser && sender != SenderBot {
		return Message{}, false
	}
	return Message{
		ID:        s.ID,
		Text:      s.Text,
		Sender:    sender,
		CreatedAt: time.UnixMilli(s.AtMS).UTC(),
	}, true
}
