package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/numduel/internal/model"
)

// DefaultTimeout bounds a single delivery attempt
const DefaultTimeout = 5 * time.Second

// Dispatcher sends notifications without blocking the caller.
// Failures are logged and never surface to game logic.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher around a Notifier
func NewDispatcher(notifier Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "notify")),
	}
}

// NotifyUser delivers n to one player in the background.
// After Close the notification is dropped.
func (d *Dispatcher) NotifyUser(playerID model.PlayerID, n Notification) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("notification dropped after close",
			slog.String("player_id", string(playerID)),
			slog.String("kind", string(n.Kind)),
		)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.deliver(playerID, n)
	}()
}

// NotifyUsers delivers n to each player in the background
func (d *Dispatcher) NotifyUsers(playerIDs []model.PlayerID, n Notification) {
	for _, id := range playerIDs {
		d.NotifyUser(id, n)
	}
}

// Wait blocks until all in-flight deliveries have finished. Callers must not
// send concurrently; use Close when deliveries may still be arriving.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close refuses further deliveries and waits for in-flight ones
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(playerID model.PlayerID, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notifier panicked",
				slog.String("player_id", string(playerID)),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.NotifyUser(ctx, playerID, n); err != nil {
		d.logger.Warn("notification delivery failed",
			slog.String("player_id", string(playerID)),
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
	}
}
