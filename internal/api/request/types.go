package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	GameMode  string `json:"game_mode,omitempty"`
	IsPrivate bool   `json:"is_private"`
}

// SecretNumberRequest is the request body for submitting a secret number
type SecretNumberRequest struct {
	Number string `json:"number"`
}

// GuessRequest is the request body for submitting a guess
type GuessRequest struct {
	Guess string `json:"guess"`
}

// JoinQueueRequest is the request body for joining a matchmaking queue
type JoinQueueRequest struct {
	QueueType string `json:"queue_type"`
	GameMode  string `json:"game_mode,omitempty"`
}
