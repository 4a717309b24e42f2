package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/numduel/internal/api/middleware"
	"github.com/mcoot/numduel/internal/api/request"
	"github.com/mcoot/numduel/internal/api/response"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/game"
)

// Matchmaker is the queue operations exposed over HTTP
type Matchmaker interface {
	Join(ctx context.Context, playerID model.PlayerID, kind model.QueueType, mode model.GameMode) error
	Leave(playerID model.PlayerID) bool
	Queued(playerID model.PlayerID) (model.QueueType, bool)
}

// GameHandler handles room, game and queue endpoints
type GameHandler struct {
	games      game.ControllerInterface
	matchmaker Matchmaker
}

// NewGameHandler creates a new game handler
func NewGameHandler(games game.ControllerInterface, matchmaker Matchmaker) *GameHandler {
	return &GameHandler{
		games:      games,
		matchmaker: matchmaker,
	}
}

func roomCodeFromPath(r *http.Request) (model.RoomCode, error) {
	return game.NormalizeRoomCode(mux.Vars(r)["code"])
}

// ListRooms handles GET /api/v1/rooms
func (h *GameHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.RoomList{Rooms: h.games.ListAvailableRooms(r.Context())})
}

// CreateRoom handles POST /api/v1/rooms
func (h *GameHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.CreateRoomRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.games.CreateRoom(r.Context(), player.ID, model.GameMode(req.GameMode), req.IsPrivate)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.Room{RoomCode: view.RoomCode, Session: view})
}

// JoinRoom handles POST /api/v1/rooms/{code}/join
func (h *GameHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code, err := roomCodeFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.games.JoinRoom(r.Context(), code, player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Room{RoomCode: view.RoomCode, Session: view})
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	games, err := h.games.ListMyGames(r.Context(), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameList{Games: games})
}

// GetGame handles GET /api/v1/games/{code}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code, err := roomCodeFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.games.GetSession(r.Context(), code, player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, view)
}

// DeleteGame handles DELETE /api/v1/games/{code}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code, err := roomCodeFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.games.DeleteGame(r.Context(), code, player.ID); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// LeaveGame handles POST /api/v1/games/{code}/leave
func (h *GameHandler) LeaveGame(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code, err := roomCodeFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.games.LeaveRoom(r.Context(), code, player.ID); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// SubmitSecret handles POST /api/v1/games/{code}/secret
func (h *GameHandler) SubmitSecret(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code, err := roomCodeFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.SecretNumberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.games.SubmitSecretNumber(r.Context(), code, player.ID, req.Number)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, view)
}

// SubmitGuess handles POST /api/v1/games/{code}/guess
func (h *GameHandler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code, err := roomCodeFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.GuessRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := h.games.SubmitGuess(r.Context(), code, player.ID, req.Guess)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, outcome)
}

// JoinQueue handles POST /api/v1/queue
func (h *GameHandler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.JoinQueueRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.matchmaker.Join(r.Context(), player.ID, model.QueueType(req.QueueType), model.GameMode(req.GameMode)); err != nil {
		WriteError(w, err)
		return
	}
	kind, queued := h.matchmaker.Queued(player.ID)
	response.JSON(w, http.StatusOK, response.Queue{Queued: queued, QueueType: kind})
}

// LeaveQueue handles DELETE /api/v1/queue
func (h *GameHandler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	h.matchmaker.Leave(player.ID)
	response.JSON(w, http.StatusOK, response.Queue{Queued: false})
}
