package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/numduel/internal/dependencies/random"
)

// MockRandom hands out queued room codes and tokens in order
type MockRandom struct {
	mu sync.Mutex

	strings []string
	tokens  []string
	minted  int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued value, or "" once the queue is drained.
// Callers that retry on collision see "" as a collision with nothing.
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.strings) == 0 {
		return ""
	}
	next := r.strings[0]
	r.strings = r.strings[1:]
	return next
}

// Token returns the next queued token. When none are queued it mints
// "token-1", "token-2", ... so sessions stay distinct.
func (r *MockRandom) Token(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tokens) > 0 {
		next := r.tokens[0]
		r.tokens = r.tokens[1:]
		return next
	}
	r.minted++
	return fmt.Sprintf("token-%d", r.minted)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strings = append(r.strings, values...)
}

// QueueToken adds values to the Token result queue
func (r *MockRandom) QueueToken(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, values...)
}
