package state

import errorsmod "cosmossdk.io/errors"

const Codespace = "bank"

var (
	ErrInsufficientFunds = errorsmod.Register(Codespace, 2, "insufficient funds")
	ErrBalanceOverflow   = errorsmod.Register(Codespace, 3, "balance overflow")
	ErrInvalidAccount    = errorsmod.Register(Codespace, 4, "invalid account")
)
