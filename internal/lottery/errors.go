package lottery

import errorsmod "cosmossdk.io/errors"

// Codespace is the ABCI codespace of every lottery error.
const Codespace = "lottery"

// x/lottery sentinel errors.
var (
	ErrInvalidRequest   = errorsmod.Register(Codespace, 2, "invalid request")
	ErrUnauthorized     = errorsmod.Register(Codespace, 3, "unauthorized")
	ErrGameOngoing      = errorsmod.Register(Codespace, 4, "game already started")
	ErrNoGameOngoing    = errorsmod.Register(Codespace, 5, "no game ongoing")
	ErrMaxPlayers       = errorsmod.Register(Codespace, 6, "max players reached")
	ErrWrongWinningSeed = errorsmod.Register(Codespace, 7, "wrong winning seed")
	ErrWrongWinner      = errorsmod.Register(Codespace, 8, "wrong winner")
	ErrNotEnoughPlayers = errorsmod.Register(Codespace, 9, "not enough players in the pool")
	ErrPoolNotFound     = errorsmod.Register(Codespace, 10, "pool not found")
)
