package lottery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	operator = "operator"
	reveal   = "42:saltvalue"
	now      = int64(1_700_000_000)
)

func newTestPool(t *testing.T, maxPlayers uint16) *Pool {
	t.Helper()
	params := DefaultParams()
	params.MaxPlayers = maxPlayers
	p, err := NewPool(1, operator, params)
	require.NoError(t, err)
	return p
}

func fundedBank(players ...string) *fakeBank {
	funded := map[string]uint64{}
	for _, p := range players {
		funded[p] = 10 * DefaultTicketPrice
	}
	return newFakeBank(funded)
}

func TestNewPool(t *testing.T) {
	p := newTestPool(t, 5)
	require.Equal(t, StateInactive, p.State)
	require.Equal(t, "lottery/pool/1", p.Escrow)
	require.Equal(t, uint64(0), p.Round)

	_, err := NewPool(1, "", DefaultParams())
	require.ErrorIs(t, err, ErrInvalidRequest)

	bad := DefaultParams()
	bad.MaxPlayers = 0
	_, err = NewPool(1, operator, bad)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPoolFullRound(t *testing.T) {
	p := newTestPool(t, DefaultMaxPlayers)
	bank := fundedBank("alice", "bob", "carol")

	require.NoError(t, p.StartGame(operator, Commit(reveal)))
	require.Equal(t, StateOngoing, p.State)
	require.Equal(t, uint64(1), p.Round)

	for _, who := range []string{"alice", "bob", "carol"} {
		require.NoError(t, p.BuyTicket(bank, who))
	}
	require.Equal(t, uint16(3), p.NPlayers())
	require.Equal(t, 3*DefaultTicketPrice, bank.balances[p.Escrow])
	require.True(t, p.Collected().Equal(Collected(3, DefaultTicketPrice)))

	res, err := p.EndGame(operator, reveal, FixedClock(now))
	require.NoError(t, err)
	require.Equal(t, StateCompleted, p.State)
	require.Equal(t, uint16(2), res.Index)
	require.Equal(t, "carol", res.Winner)
	require.Equal(t, uint64(42), res.Seed)
	require.False(t, res.Empty)
	require.NotNil(t, p.Winner)
	require.Equal(t, "carol", *p.Winner)

	carolBefore := bank.balances["carol"]
	amount, err := p.Payout(bank, operator, "carol")
	require.NoError(t, err)
	require.Equal(t, uint64(59_400_000), amount)
	require.Equal(t, carolBefore+amount, bank.balances["carol"])
	require.Equal(t, uint64(600_000), bank.balances[p.Escrow])

	require.Equal(t, StateInactive, p.State)
	require.Nil(t, p.Winner)
	require.Equal(t, uint16(0), p.NPlayers())

	// the next round starts clean and the leftover cut stays in escrow
	require.NoError(t, p.StartGame(operator, Commit("7:again")))
	require.Equal(t, uint64(2), p.Round)
	require.Equal(t, uint64(600_000), bank.balances[p.Escrow])
}

func TestPoolStartGame(t *testing.T) {
	p := newTestPool(t, 5)

	require.ErrorIs(t, p.StartGame("mallory", Commit(reveal)), ErrUnauthorized)
	require.Equal(t, StateInactive, p.State)
	require.Equal(t, uint64(0), p.Round)

	require.ErrorIs(t, p.StartGame(operator, Commitment{}), ErrInvalidRequest)
	require.Equal(t, StateInactive, p.State)

	require.NoError(t, p.StartGame(operator, Commit(reveal)))
	require.ErrorIs(t, p.StartGame(operator, Commit("1:other")), ErrGameOngoing)
	require.Equal(t, Commit(reveal), p.Commitment)
}

func TestPoolBuyTicket(t *testing.T) {
	p := newTestPool(t, 2)
	bank := fundedBank("alice", "bob")

	require.ErrorIs(t, p.BuyTicket(bank, "alice"), ErrNoGameOngoing)
	require.Equal(t, 0, bank.calls)

	require.NoError(t, p.StartGame(operator, Commit(reveal)))
	require.ErrorIs(t, p.BuyTicket(bank, ""), ErrInvalidRequest)

	// same identity may hold several tickets
	require.NoError(t, p.BuyTicket(bank, "alice"))
	require.NoError(t, p.BuyTicket(bank, "alice"))
	require.ErrorIs(t, p.BuyTicket(bank, "bob"), ErrMaxPlayers)
	require.Equal(t, 10*DefaultTicketPrice, bank.balances["bob"])
	require.Equal(t, []string{"alice", "alice"}, p.Tickets.Entries)
}

func TestPoolBuyTicketFailedTransferRecordsNothing(t *testing.T) {
	p := newTestPool(t, 5)
	bank := newFakeBank(map[string]uint64{"poor": DefaultTicketPrice - 1})
	require.NoError(t, p.StartGame(operator, Commit(reveal)))

	require.Error(t, p.BuyTicket(bank, "poor"))
	require.Equal(t, uint16(0), p.NPlayers())
	require.Equal(t, DefaultTicketPrice-1, bank.balances["poor"])

	sentinel := errors.New("bank offline")
	bank.failNext = sentinel
	bank.balances["rich"] = DefaultTicketPrice
	err := p.BuyTicket(bank, "rich")
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, uint16(0), p.NPlayers())
}

func TestPoolEscrowAccountIsReserved(t *testing.T) {
	p := newTestPool(t, 5)
	bank := newFakeBank(map[string]uint64{p.Escrow: 10 * DefaultTicketPrice})
	require.NoError(t, p.StartGame(operator, Commit(reveal)))

	require.True(t, IsEscrowAccount(p.Escrow))
	require.False(t, IsEscrowAccount("lottery/poolside"))

	// A ticket paid from escrow to escrow would be free.
	require.ErrorIs(t, p.BuyTicket(bank, p.Escrow), ErrUnauthorized)
	require.Equal(t, uint16(0), p.NPlayers())
	require.Zero(t, bank.calls)

	_, err := NewPool(2, EscrowAccount(1), DefaultParams())
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPoolEndGameWrongRevealKeepsRoundOpen(t *testing.T) {
	p := newTestPool(t, 5)
	bank := fundedBank("alice", "bob", "carol")
	require.NoError(t, p.StartGame(operator, Commit(reveal)))
	for _, who := range []string{"alice", "bob", "carol"} {
		require.NoError(t, p.BuyTicket(bank, who))
	}

	_, err := p.EndGame(operator, "42:wrong", FixedClock(now))
	require.ErrorIs(t, err, ErrWrongWinningSeed)
	require.Equal(t, StateOngoing, p.State)
	require.Nil(t, p.Winner)

	_, err = p.EndGame("mallory", reveal, FixedClock(now))
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, StateOngoing, p.State)

	// tickets can still be bought before the retry
	require.NoError(t, fundAndBuy(p, bank, "dave"))

	res, err := p.EndGame(operator, reveal, FixedClock(now))
	require.NoError(t, err)
	require.Equal(t, uint16(4), res.NPlayers)
	require.Equal(t, StateCompleted, p.State)
}

func fundAndBuy(p *Pool, bank *fakeBank, who string) error {
	bank.balances[who] += p.Params.TicketPrice
	return p.BuyTicket(bank, who)
}

func TestPoolEndGameUnparsableSeed(t *testing.T) {
	p := newTestPool(t, 5)
	bank := fundedBank("alice")
	require.NoError(t, p.StartGame(operator, Commit("notanumber:salt")))
	require.NoError(t, p.BuyTicket(bank, "alice"))

	_, err := p.EndGame(operator, "notanumber:salt", FixedClock(now))
	require.ErrorIs(t, err, ErrWrongWinningSeed)
	require.Equal(t, StateOngoing, p.State)
}

func TestPoolEndGameWithoutPlayers(t *testing.T) {
	p := newTestPool(t, 5)
	require.NoError(t, p.StartGame(operator, Commit(reveal)))

	res, err := p.EndGame(operator, reveal, FixedClock(now))
	require.NoError(t, err)
	require.True(t, res.Empty)
	require.Equal(t, StateInactive, p.State)
	require.Nil(t, p.Winner)

	_, err = p.Payout(fundedBank(), operator, "anyone")
	require.ErrorIs(t, err, ErrNoGameOngoing)

	require.NoError(t, p.StartGame(operator, Commit("1:next")))
}

func TestPoolEndGameRequiresOngoing(t *testing.T) {
	p := newTestPool(t, 5)
	_, err := p.EndGame(operator, reveal, FixedClock(now))
	require.ErrorIs(t, err, ErrNoGameOngoing)
}

func TestPoolPayoutChecks(t *testing.T) {
	p := newTestPool(t, 5)
	bank := fundedBank("alice", "bob", "carol")
	require.NoError(t, p.StartGame(operator, Commit(reveal)))

	_, err := p.Payout(bank, operator, "alice")
	require.ErrorIs(t, err, ErrNoGameOngoing)

	for _, who := range []string{"alice", "bob", "carol"} {
		require.NoError(t, p.BuyTicket(bank, who))
	}
	_, err = p.EndGame(operator, reveal, FixedClock(now))
	require.NoError(t, err)

	require.ErrorIs(t, p.BuyTicket(bank, "alice"), ErrNoGameOngoing)

	escrow := bank.balances[p.Escrow]

	_, err = p.Payout(bank, "mallory", "carol")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = p.Payout(bank, operator, "alice")
	require.ErrorIs(t, err, ErrWrongWinner)
	require.Equal(t, StateCompleted, p.State)
	require.Equal(t, escrow, bank.balances[p.Escrow])

	bank.failNext = errors.New("bank offline")
	_, err = p.Payout(bank, operator, "carol")
	require.Error(t, err)
	require.Equal(t, StateCompleted, p.State)
	require.NotNil(t, p.Winner)

	_, err = p.Payout(bank, operator, "carol")
	require.NoError(t, err)
	_, err = p.Payout(bank, operator, "carol")
	require.ErrorIs(t, err, ErrNoGameOngoing)
}
