package usecases

import (
	"sync"
	"time"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
)

// DefaultHistoryWindow bounds how many turns a session keeps.
const DefaultHistoryWindow = 12

// Conversation holds the bounded turn history for one session. Turns are
// append-only; once the window is exceeded the oldest turns are dropped.
// Safe for concurrent reads while the orchestrator appends.
type Conversation struct {
	mu     sync.RWMutex
	window int
	turns  []entities.ConversationTurn
}

// NewConversation creates a Conversation with a per-session window size.
func NewConversation(window int) *Conversation {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Conversation{window: window}
}

// Append adds a turn and truncates from the oldest end to the window.
func (c *Conversation) Append(role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, entities.ConversationTurn{
		Role: role,
		Text: text,
		At:   time.Now().UTC(),
	})
	if len(c.turns) > c.window {
		c.turns = c.turns[len(c.turns)-c.window:]
	}
}

// Render returns the turns oldest-first for prompt assembly.
func (c *Conversation) Render() []entities.ConversationTurn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]entities.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of retained turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Window returns the configured window size.
func (c *Conversation) Window() int {
	return c.window
}
