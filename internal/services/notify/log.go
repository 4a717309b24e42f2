package notify

import (
	"context"
	"log/slog"

	"github.com/mcoot/numduel/internal/model"
)

// LogNotifier writes notifications to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyUser logs the notification
func (n *LogNotifier) NotifyUser(ctx context.Context, playerID model.PlayerID, notification Notification) error {
	n.logger.InfoContext(ctx, "notification",
		slog.String("player_id", string(playerID)),
		slog.String("kind", string(notification.Kind)),
		slog.String("room_code", string(notification.RoomCode)),
		slog.String("title", notification.Title),
	)
	return nil
}
