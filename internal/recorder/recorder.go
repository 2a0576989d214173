// Package recorder keeps an off-chain history of finished rounds for
// analysis. It runs after Commit and never feeds back into consensus.
package recorder

// RoundResult is written when end_game closes a round.
type RoundResult struct {
	PoolID      uint64
	Round       uint64
	Height      int64
	BlockTime   int64
	NPlayers    uint16
	Seed        uint64
	WinnerIndex uint16
	Winner      string // empty when no tickets were sold
}

// PayoutEvent is written when escrow is released to a winner.
type PayoutEvent struct {
	PoolID uint64
	Round  uint64
	Height int64
	Winner string
	Amount uint64
	Cut    uint64 // left in escrow
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRound(r *RoundResult) error
	RecordPayout(p *PayoutEvent) error
	Close() error
}
