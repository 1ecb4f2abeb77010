package store

import (
	"sync"

	"chatapp-client/internal/models"
)

// MessageLog is the ordered message sequence for the active text
// channel. Membership is always a subset of the owning channel's
// messages: switching channels clears the log synchronously, and every
// merge carries the channel id its fetch was issued for, so a fetch that
// resolves after the user has moved on is discarded instead of leaking
// another channel's messages into the view.
type MessageLog struct {
	observers

	mu        sync.RWMutex
	channelID int64
	messages  []models.Message
}

func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// ChannelID returns the id of the channel the log currently belongs to,
// 0 when none is selected.
func (l *MessageLog) ChannelID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.channelID
}

// Get returns a copy of the sequence in ascending creation order.
func (l *MessageLog) Get() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// SetChannel rebinds the log to channelID and clears it. Clearing
// happens here, before any fetch for the new channel is issued.
func (l *MessageLog) SetChannel(channelID int64) {
	l.mu.Lock()
	l.channelID = channelID
	l.messages = nil
	l.mu.Unlock()

	l.notify()
}

// ReplaceAll swaps the whole sequence. The merge is dropped when the
// log no longer belongs to channelID.
func (l *MessageLog) ReplaceAll(channelID int64, msgs []models.Message) bool {
	l.mu.Lock()
	if l.channelID != channelID {
		l.mu.Unlock()
		return false
	}
	l.messages = make([]models.Message, len(msgs))
	copy(l.messages, msgs)
	l.mu.Unlock()

	l.notify()
	return true
}

// Append adds one message at the end, or replaces it in place when the
// id is already present (a re-delivered insert must not duplicate).
// Dropped when the log no longer belongs to channelID.
func (l *MessageLog) Append(channelID int64, m models.Message) bool {
	l.mu.Lock()
	if l.channelID != channelID {
		l.mu.Unlock()
		return false
	}
	replaced := false
	for i := range l.messages {
		if l.messages[i].ID == m.ID {
			l.messages[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		l.messages = append(l.messages, m)
	}
	l.mu.Unlock()

	l.notify()
	return true
}

// Replace swaps the message with a matching id. A missing id is a
// no-op, never an insert.
func (l *MessageLog) Replace(channelID int64, m models.Message) bool {
	l.mu.Lock()
	if l.channelID != channelID {
		l.mu.Unlock()
		return false
	}
	replaced := false
	for i := range l.messages {
		if l.messages[i].ID == m.ID {
			l.messages[i] = m
			replaced = true
			break
		}
	}
	l.mu.Unlock()

	if replaced {
		l.notify()
	}
	return replaced
}

func (l *MessageLog) RemoveByID(id int64) {
	l.mu.Lock()
	kept := l.messages[:0]
	for _, m := range l.messages {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	removed := len(kept) != len(l.messages)
	l.messages = kept
	l.mu.Unlock()

	if removed {
		l.notify()
	}
}
