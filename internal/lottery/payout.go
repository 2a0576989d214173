package lottery

import (
	sdkmath "cosmossdk.io/math"
)

// Collected is nPlayers * ticketPrice, computed without overflow.
func Collected(nPlayers uint16, ticketPrice uint64) sdkmath.Int {
	return sdkmath.NewIntFromUint64(ticketPrice).Mul(sdkmath.NewInt(int64(nPlayers)))
}

// CalcPayout returns floor((1 - cut) * nPlayers * ticketPrice).
//
// The multiplication runs in 18-decimal fixed point so no precision is lost
// before truncation.
func CalcPayout(nPlayers uint16, ticketPrice uint64, cut sdkmath.LegacyDec) (uint64, error) {
	if err := validateCut(cut); err != nil {
		return 0, err
	}
	collected := Collected(nPlayers, ticketPrice)
	amount := sdkmath.LegacyOneDec().Sub(cut).MulInt(collected).TruncateInt()
	if !amount.IsUint64() {
		return 0, ErrInvalidRequest.Wrapf("payout %s overflows uint64", amount)
	}
	return amount.Uint64(), nil
}
