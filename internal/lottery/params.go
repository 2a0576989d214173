package lottery

import (
	sdkmath "cosmossdk.io/math"
)

const (
	// DefaultMaxPlayers caps the ticket ledger of a round.
	DefaultMaxPlayers uint16 = 20

	// DefaultTicketPrice is 0.02 of a 9-decimal coin.
	DefaultTicketPrice uint64 = 20_000_000

	// DefaultPoolCut is the share of the collected funds kept in escrow for the operator.
	DefaultPoolCut = "0.01"
)

// Params are fixed when a pool is created and persisted with it.
type Params struct {
	MaxPlayers  uint16            `json:"maxPlayers"`
	TicketPrice uint64            `json:"ticketPrice"`
	PoolCut     sdkmath.LegacyDec `json:"poolCut"`
}

func DefaultParams() Params {
	return Params{
		MaxPlayers:  DefaultMaxPlayers,
		TicketPrice: DefaultTicketPrice,
		PoolCut:     sdkmath.LegacyMustNewDecFromStr(DefaultPoolCut),
	}
}

// NewParams parses cut as a decimal fraction and validates the result.
func NewParams(maxPlayers uint16, ticketPrice uint64, cut string) (Params, error) {
	dec, err := sdkmath.LegacyNewDecFromStr(cut)
	if err != nil {
		return Params{}, ErrInvalidRequest.Wrapf("pool cut %q: %v", cut, err)
	}
	p := Params{MaxPlayers: maxPlayers, TicketPrice: ticketPrice, PoolCut: dec}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if p.MaxPlayers == 0 {
		return ErrInvalidRequest.Wrap("maxPlayers must be > 0")
	}
	if p.TicketPrice == 0 {
		return ErrInvalidRequest.Wrap("ticketPrice must be > 0")
	}
	return validateCut(p.PoolCut)
}

func validateCut(cut sdkmath.LegacyDec) error {
	if cut.IsNil() {
		return ErrInvalidRequest.Wrap("poolCut is unset")
	}
	if cut.IsNegative() || cut.GTE(sdkmath.LegacyOneDec()) {
		return ErrInvalidRequest.Wrapf("poolCut %s must be in [0, 1)", cut)
	}
	return nil
}
