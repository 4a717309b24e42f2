package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/numduel/internal/api/apierr"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/game"
)

// Matchmaker is the queue operations exposed over websocket
type Matchmaker interface {
	Join(ctx context.Context, playerID model.PlayerID, kind model.QueueType, mode model.GameMode) error
	Leave(playerID model.PlayerID) bool
	Queued(playerID model.PlayerID) (model.QueueType, bool)
}

// Router dispatches client requests to the game services
type Router struct {
	games      game.ControllerInterface
	matchmaker Matchmaker
	logger     *slog.Logger
}

// NewRouter creates a new request router
func NewRouter(games game.ControllerInterface, matchmaker Matchmaker, logger *slog.Logger) *Router {
	return &Router{
		games:      games,
		matchmaker: matchmaker,
		logger:     logger.With(slog.String("component", "ws-router")),
	}
}

// Handle runs one request for the player. It returns false for
// fire-and-forget requests that get no response.
func (r *Router) Handle(ctx context.Context, playerID model.PlayerID, req Request) (Response, bool) {
	if req.Type == TypeTypingUpdate {
		var p TypingPayload
		if err := decode(req.Payload, &p); err != nil {
			return Response{}, false
		}
		code, err := game.NormalizeRoomCode(p.RoomCode)
		if err == nil {
			err = r.games.Typing(ctx, code, playerID, p.IsTyping, p.PartialInput)
		}
		if err != nil {
			r.logger.Debug("typing update rejected",
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()),
			)
		}
		return Response{}, false
	}

	data, err := r.dispatch(ctx, playerID, req)
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			r.logger.Error("request failed",
				slog.String("type", req.Type),
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()),
			)
		}
		return errorResponse(req.ID, err), true
	}
	return Response{Type: TypeResponse, ID: req.ID, OK: true, Data: data}, true
}

func (r *Router) dispatch(ctx context.Context, playerID model.PlayerID, req Request) (any, error) {
	switch req.Type {
	case TypePing:
		return map[string]string{"pong": "ok"}, nil

	case TypeCreateRoom:
		var p CreateRoomPayload
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		view, err := r.games.CreateRoom(ctx, playerID, p.GameMode, p.IsPrivate)
		if err != nil {
			return nil, err
		}
		return RoomResult{RoomCode: view.RoomCode, Session: view}, nil

	case TypeJoinRoom:
		code, err := roomCode(req.Payload)
		if err != nil {
			return nil, err
		}
		view, err := r.games.JoinRoom(ctx, code, playerID)
		if err != nil {
			return nil, err
		}
		return RoomResult{RoomCode: view.RoomCode, Session: view}, nil

	case TypeListAvailableRooms:
		return r.games.ListAvailableRooms(ctx), nil

	case TypeListMyGames:
		return r.games.ListMyGames(ctx, playerID)

	case TypeJoinQueue:
		var p JoinQueuePayload
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		if err := r.matchmaker.Join(ctx, playerID, p.QueueType, p.GameMode); err != nil {
			return nil, err
		}
		kind, queued := r.matchmaker.Queued(playerID)
		return QueueResult{Queued: queued, QueueType: kind}, nil

	case TypeLeaveQueue:
		r.matchmaker.Leave(playerID)
		return QueueResult{Queued: false}, nil

	case TypeSubmitSecretNumber:
		var p SecretNumberPayload
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		code, err := game.NormalizeRoomCode(p.RoomCode)
		if err != nil {
			return nil, err
		}
		return r.games.SubmitSecretNumber(ctx, code, playerID, p.Number)

	case TypeSubmitGuess:
		var p GuessPayload
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		code, err := game.NormalizeRoomCode(p.RoomCode)
		if err != nil {
			return nil, err
		}
		return r.games.SubmitGuess(ctx, code, playerID, p.Guess)

	case TypeLeaveRoom:
		code, err := roomCode(req.Payload)
		if err != nil {
			return nil, err
		}
		return nil, r.games.LeaveRoom(ctx, code, playerID)

	case TypeDeleteGame:
		code, err := roomCode(req.Payload)
		if err != nil {
			return nil, err
		}
		return nil, r.games.DeleteGame(ctx, code, playerID)

	default:
		return nil, model.ErrInvalidRequest
	}
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return model.ErrInvalidRequest
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return model.ErrInvalidRequest
	}
	return nil
}

func roomCode(payload json.RawMessage) (model.RoomCode, error) {
	var p RoomPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	return game.NormalizeRoomCode(p.RoomCode)
}

func errorResponse(id string, err error) Response {
	apiErr := apierr.FromError(err)
	return Response{Type: TypeResponse, ID: id, OK: false, Error: &apiErr}
}
