package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/numduel/internal/model"
)

// Publisher is the subset of *nats.Conn used for delivery
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes notifications as JSON on a per-player subject.
// A push gateway subscribes to "<prefix>.>" and fans out to devices.
type NATSNotifier struct {
	pub    Publisher
	prefix string
}

// NewNATSNotifier creates a notifier publishing under the given subject prefix
func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	return &NATSNotifier{pub: pub, prefix: prefix}
}

// Connect dials NATS with reconnect settings suitable for a long-lived server
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("numduel-notify"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

// Subject returns the subject a player's notifications are published on
func (n *NATSNotifier) Subject(playerID model.PlayerID) string {
	return n.prefix + "." + string(playerID)
}

type natsMessage struct {
	PlayerID model.PlayerID `json:"player_id"`
	Notification
}

// NotifyUser publishes the notification
func (n *NATSNotifier) NotifyUser(ctx context.Context, playerID model.PlayerID, notification Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(natsMessage{PlayerID: playerID, Notification: notification})
	if err != nil {
		return err
	}
	if err := n.pub.Publish(n.Subject(playerID), data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
