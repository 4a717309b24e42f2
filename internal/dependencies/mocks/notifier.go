package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/notify"
)

// SentNotification is one recorded delivery
type SentNotification struct {
	PlayerID     model.PlayerID
	Notification notify.Notification
}

// MockNotifier records notifications and optionally fails
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotification
	Err  error
}

// Ensure MockNotifier implements Notifier
var _ notify.Notifier = (*MockNotifier)(nil)

// NewMockNotifier creates a MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NotifyUser records the notification and returns Err
func (n *MockNotifier) NotifyUser(ctx context.Context, playerID model.PlayerID, notification notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentNotification{PlayerID: playerID, Notification: notification})
	return n.Err
}

// Sent returns a copy of all recorded notifications
func (n *MockNotifier) Sent() []SentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]SentNotification, len(n.sent))
	copy(out, n.sent)
	return out
}

// SentTo returns the kinds delivered to one player, in order
func (n *MockNotifier) SentTo(playerID model.PlayerID) []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []notify.Kind
	for _, s := range n.sent {
		if s.PlayerID == playerID {
			kinds = append(kinds, s.Notification.Kind)
		}
	}
	return kinds
}
