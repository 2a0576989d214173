// Package lottery implements the round lifecycle of a fund-custody lottery pool:
// ticket sales into escrow, commit-reveal winner selection and payout.
//
// The package owns no storage, signatures or balances. The host verifies who the
// caller is and hands in a Bank and a Clock; every Pool method either succeeds
// completely or leaves the Pool as it was.
package lottery

import (
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

type RoundState string

const (
	StateInactive  RoundState = "inactive"
	StateOngoing   RoundState = "ongoing"
	StateCompleted RoundState = "completed"
)

// EscrowPrefix is the account namespace reserved for pool escrows. No key can
// be registered under it, so escrowed funds only move through pool operations.
const EscrowPrefix = "lottery/pool/"

// EscrowAccount is the account holding the funds of pool id.
func EscrowAccount(id uint64) string {
	return EscrowPrefix + strconv.FormatUint(id, 10)
}

func IsEscrowAccount(addr string) bool {
	return strings.HasPrefix(addr, EscrowPrefix)
}

type Pool struct {
	ID        uint64 `json:"id"`
	Authority string `json:"authority"`
	Escrow    string `json:"escrow"`
	Params    Params `json:"params"`

	State      RoundState   `json:"state"`
	Commitment Commitment   `json:"commitment"`
	Tickets    TicketLedger `json:"tickets"`

	// Winner is set by EndGame and cleared by Payout.
	Winner *string `json:"winner,omitempty"`

	// Round counts StartGame calls.
	Round uint64 `json:"round"`
}

// Resolution describes how EndGame closed a round.
type Resolution struct {
	Round    uint64
	NPlayers uint16
	Seed     uint64
	Now      int64
	Index    uint16
	Winner   string
	// Empty is set when the round closed with no tickets sold.
	Empty bool
}

func NewPool(id uint64, authority string, params Params) (*Pool, error) {
	if authority == "" {
		return nil, ErrInvalidRequest.Wrap("missing authority")
	}
	if IsEscrowAccount(authority) {
		return nil, ErrInvalidRequest.Wrapf("authority %q is a reserved escrow account", authority)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Pool{
		ID:        id,
		Authority: authority,
		Escrow:    EscrowAccount(id),
		Params:    params,
		State:     StateInactive,
		Tickets:   NewTicketLedger(params.MaxPlayers),
	}, nil
}

func (p *Pool) NPlayers() uint16 {
	return p.Tickets.Len()
}

// Collected is the amount escrowed by the current round's tickets.
func (p *Pool) Collected() sdkmath.Int {
	return Collected(p.NPlayers(), p.Params.TicketPrice)
}

// StartGame opens a round bound to commitment.
func (p *Pool) StartGame(caller string, commitment Commitment) error {
	if err := RequireSameIdentity(p.Authority, caller); err != nil {
		return err
	}
	if p.State != StateInactive {
		return ErrGameOngoing.Wrapf("pool %d is %s", p.ID, p.State)
	}
	if commitment.IsZero() {
		return ErrInvalidRequest.Wrap("missing commitment")
	}

	p.Commitment = commitment
	p.Tickets = NewTicketLedger(p.Params.MaxPlayers)
	p.Winner = nil
	p.Round++
	p.State = StateOngoing
	return nil
}

// BuyTicket escrows one ticket price from buyer and records the entry. The
// entry is only recorded once the transfer has gone through.
func (p *Pool) BuyTicket(bank Bank, buyer string) error {
	if buyer == "" {
		return ErrInvalidRequest.Wrap("missing buyer")
	}
	if IsEscrowAccount(buyer) {
		return ErrUnauthorized.Wrapf("escrow account %q cannot buy tickets", buyer)
	}
	if p.State != StateOngoing {
		return ErrNoGameOngoing.Wrapf("pool %d is %s", p.ID, p.State)
	}
	if p.Tickets.Full() {
		return ErrMaxPlayers.Wrapf("pool %d has %d players", p.ID, p.NPlayers())
	}
	if err := bank.Transfer(buyer, p.Escrow, p.Params.TicketPrice); err != nil {
		return errorsmod.Wrap(err, "escrow ticket price")
	}
	return p.Tickets.Append(buyer)
}

// EndGame verifies the reveal and picks the winner. A mismatched or malformed
// reveal leaves the round open so the authority can retry.
func (p *Pool) EndGame(caller string, reveal string, clock Clock) (Resolution, error) {
	if err := RequireSameIdentity(p.Authority, caller); err != nil {
		return Resolution{}, err
	}
	if p.State != StateOngoing {
		return Resolution{}, ErrNoGameOngoing.Wrapf("pool %d is %s", p.ID, p.State)
	}
	if err := VerifyReveal(p.Commitment, reveal); err != nil {
		return Resolution{}, err
	}

	n := p.NPlayers()
	if n == 0 {
		p.State = StateInactive
		return Resolution{Round: p.Round, Empty: true}, nil
	}

	seed, err := ParseSeed(reveal)
	if err != nil {
		return Resolution{}, err
	}
	now := clock.Now()
	idx, err := WinningIndex(seed, now, n)
	if err != nil {
		return Resolution{}, err
	}
	winner, err := p.Tickets.At(idx)
	if err != nil {
		return Resolution{}, err
	}

	p.Winner = &winner
	p.State = StateCompleted
	return Resolution{
		Round:    p.Round,
		NPlayers: n,
		Seed:     seed,
		Now:      now,
		Index:    idx,
		Winner:   winner,
	}, nil
}

// Payout sends the winner's share of the escrow to recipient, which must be
// the recorded winner. The cut stays in escrow.
func (p *Pool) Payout(bank Bank, caller string, recipient string) (uint64, error) {
	if err := RequireSameIdentity(p.Authority, caller); err != nil {
		return 0, err
	}
	if p.State != StateCompleted {
		return 0, ErrNoGameOngoing.Wrapf("pool %d is %s", p.ID, p.State)
	}
	if p.Winner == nil || p.NPlayers() == 0 {
		return 0, ErrNotEnoughPlayers.Wrapf("pool %d has no winner", p.ID)
	}
	if recipient != *p.Winner {
		return 0, ErrWrongWinner.Wrapf("recipient %q is not the winner", recipient)
	}

	amount, err := CalcPayout(p.NPlayers(), p.Params.TicketPrice, p.Params.PoolCut)
	if err != nil {
		return 0, err
	}
	if err := bank.Transfer(p.Escrow, recipient, amount); err != nil {
		return 0, errorsmod.Wrap(err, "release escrow")
	}

	p.State = StateInactive
	p.Tickets.Reset()
	p.Winner = nil
	return amount, nil
}
