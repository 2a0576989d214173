package app

import (
	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
)

// Codespace of host-level (envelope, auth, routing) errors.
const Codespace = "lottod"

var (
	ErrTxDecode     = errorsmod.Register(Codespace, 2, "tx decode")
	ErrUnknownTx    = errorsmod.Register(Codespace, 3, "unknown tx type")
	ErrInvalidTx    = errorsmod.Register(Codespace, 4, "invalid tx")
	ErrUnauthorized = errorsmod.Register(Codespace, 5, "tx auth failed")
	ErrInvalidNonce = errorsmod.Register(Codespace, 6, "invalid nonce")
	ErrUnknownQuery = errorsmod.Register(Codespace, 7, "unknown query path")
)

func errResult(err error) *abci.ExecTxResult {
	codespace, code, log := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Codespace: codespace, Code: code, Log: log}
}
