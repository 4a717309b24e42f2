package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/numduel/internal/dependencies/mocks"
	"github.com/mcoot/numduel/internal/services/registry"
	"github.com/mcoot/numduel/internal/storage"
	"github.com/mcoot/numduel/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock    *mocks.MockClock
	MockRandom   *mocks.MockRandom
	MockNotifier *mocks.MockNotifier
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return newTestApp(memory.New(), time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

// Restart builds a fresh App over the same store, as the next process would
// find it after Close. Its clock starts where this one stopped.
func (t *TestApp) Restart() *TestApp {
	return newTestApp(t.Storage, t.MockClock.Now())
}

func newTestApp(store storage.Storage, now time.Time) *TestApp {
	mockClock := mocks.NewMockClock(now)
	mockRandom := mocks.NewMockRandom()
	mockNotifier := mocks.NewMockNotifier()

	cfg := Config{
		RegistryConfig: registry.Config{SaveAttempts: 2, RetryBackoff: time.Millisecond},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := newWithDependencies(store, mockClock, mockRandom, mockNotifier, cfg, logger)

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		MockNotifier: mockNotifier,
	}
}

// QueueRoomCodes makes the next created rooms use the given codes
func (t *TestApp) QueueRoomCodes(codes ...string) {
	t.MockRandom.QueueString(codes...)
}
