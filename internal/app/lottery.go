package app

import (
	"strconv"

	sdkmath "cosmossdk.io/math"
	abci "github.com/cometbft/cometbft/abci/types"

	"onchainlotto/internal/codec"
	"onchainlotto/internal/lottery"
	"onchainlotto/internal/metrics"
	"onchainlotto/internal/recorder"
)

// poolParams fills the fields a create_pool tx leaves unset from the node
// defaults.
func (a *LottoApp) poolParams(msg codec.LotteryCreatePoolTx) (lottery.Params, error) {
	p := a.params
	if msg.MaxPlayers != 0 {
		p.MaxPlayers = msg.MaxPlayers
	}
	if msg.TicketPrice != 0 {
		p.TicketPrice = msg.TicketPrice
	}
	if msg.PoolCut != "" {
		cut, err := sdkmath.LegacyNewDecFromStr(msg.PoolCut)
		if err != nil {
			return lottery.Params{}, lottery.ErrInvalidRequest.Wrapf("pool cut %q: %v", msg.PoolCut, err)
		}
		p.PoolCut = cut
	}
	return p, p.Validate()
}

// lottery/create_pool needs no signature, but the named authority must
// already have a registered key so nobody can claim the pool later.
func handleCreatePool(a *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.LotteryCreatePoolTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	params, err := a.poolParams(msg)
	if err != nil {
		return nil, err
	}
	if msg.Authority != "" && !lottery.IsEscrowAccount(msg.Authority) {
		if _, ok := x.st.AccountKeys[msg.Authority]; !ok {
			return nil, ErrUnauthorized.Wrapf("authority %q has no registered pubKey (auth/register_account required)", msg.Authority)
		}
	}

	id := x.st.NextPoolID
	p, err := lottery.NewPool(id, msg.Authority, params)
	if err != nil {
		return nil, err
	}
	x.st.NextPoolID++
	x.st.Pools[id] = p

	a.logger.Info("pool created", "pool", id, "authority", p.Authority)
	return okEvent("PoolCreated", map[string]string{
		"poolId":      u64(id),
		"authority":   p.Authority,
		"escrow":      p.Escrow,
		"maxPlayers":  strconv.Itoa(int(params.MaxPlayers)),
		"ticketPrice": u64(params.TicketPrice),
		"poolCut":     params.PoolCut.String(),
	}), nil
}

func handleStartGame(a *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.LotteryStartGameTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if err := requireAccountAuth(x.st, x.env, msg.Authority); err != nil {
		return nil, err
	}
	if err := consumeNonce(x.st, x.env); err != nil {
		return nil, err
	}
	p, err := x.st.Pool(msg.PoolID)
	if err != nil {
		return nil, err
	}
	// The caller is checked before the commitment is decoded.
	if err := lottery.RequireSameIdentity(p.Authority, msg.Authority); err != nil {
		return nil, err
	}
	commitment, err := lottery.CommitmentFromHex(msg.Commitment)
	if err != nil {
		return nil, err
	}
	if err := p.StartGame(msg.Authority, commitment); err != nil {
		return nil, err
	}

	a.logger.Info("game started", "pool", p.ID, "round", p.Round)
	return okEvent("GameStarted", map[string]string{
		"poolId":     u64(p.ID),
		"round":      u64(p.Round),
		"commitment": commitment.String(),
	}), nil
}

func handleBuyTicket(a *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.LotteryBuyTicketTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if err := requireAccountAuth(x.st, x.env, msg.Buyer); err != nil {
		return nil, err
	}
	if err := consumeNonce(x.st, x.env); err != nil {
		return nil, err
	}
	p, err := x.st.Pool(msg.PoolID)
	if err != nil {
		return nil, err
	}
	if err := p.BuyTicket(x.st, msg.Buyer); err != nil {
		return nil, err
	}

	x.after = append(x.after, metrics.RecordTicket)
	a.logger.Debug("ticket bought", "pool", p.ID, "buyer", msg.Buyer, "players", p.NPlayers())
	return okEvent("TicketBought", map[string]string{
		"poolId":      u64(p.ID),
		"round":       u64(p.Round),
		"buyer":       msg.Buyer,
		"ticketIndex": strconv.Itoa(int(p.NPlayers()) - 1),
		"nPlayers":    strconv.Itoa(int(p.NPlayers())),
		"price":       u64(p.Params.TicketPrice),
	}), nil
}

func handleEndGame(a *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.LotteryEndGameTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if err := requireAccountAuth(x.st, x.env, msg.Authority); err != nil {
		return nil, err
	}
	if err := consumeNonce(x.st, x.env); err != nil {
		return nil, err
	}
	p, err := x.st.Pool(msg.PoolID)
	if err != nil {
		return nil, err
	}
	res, err := p.EndGame(msg.Authority, msg.Reveal, lottery.FixedClock(x.now))
	if err != nil {
		return nil, err
	}

	x.rounds = append(x.rounds, recorder.RoundResult{
		PoolID:      p.ID,
		Round:       res.Round,
		Height:      x.height,
		BlockTime:   x.now,
		NPlayers:    res.NPlayers,
		Seed:        res.Seed,
		WinnerIndex: res.Index,
		Winner:      res.Winner,
	})
	x.after = append(x.after, func() { metrics.RecordRoundEnded(res.Empty) })

	outcome := "winner"
	if res.Empty {
		outcome = "empty"
	}
	ended := event("GameEnded", map[string]string{
		"poolId":   u64(p.ID),
		"round":    u64(res.Round),
		"nPlayers": strconv.Itoa(int(res.NPlayers)),
		"outcome":  outcome,
		"state":    string(p.State),
	})
	if res.Empty {
		a.logger.Info("round closed without players", "pool", p.ID, "round", res.Round)
		return &abci.ExecTxResult{Events: []abci.Event{ended}}, nil
	}

	a.logger.Info("winner selected", "pool", p.ID, "round", res.Round, "winner", res.Winner, "index", res.Index)
	return &abci.ExecTxResult{Events: []abci.Event{
		ended,
		event("WinnerSelected", map[string]string{
			"poolId":      u64(p.ID),
			"round":       u64(res.Round),
			"winner":      res.Winner,
			"winnerIndex": strconv.Itoa(int(res.Index)),
			"seed":        u64(res.Seed),
			"blockTime":   strconv.FormatInt(res.Now, 10),
		}),
	}}, nil
}

func handlePayout(a *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.LotteryPayoutTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if err := requireAccountAuth(x.st, x.env, msg.Authority); err != nil {
		return nil, err
	}
	if err := consumeNonce(x.st, x.env); err != nil {
		return nil, err
	}
	p, err := x.st.Pool(msg.PoolID)
	if err != nil {
		return nil, err
	}

	collected := p.Collected()
	round := p.Round
	amount, err := p.Payout(x.st, msg.Authority, msg.Winner)
	if err != nil {
		return nil, err
	}
	cut := collected.Sub(sdkmath.NewIntFromUint64(amount))

	x.payouts = append(x.payouts, recorder.PayoutEvent{
		PoolID: p.ID,
		Round:  round,
		Height: x.height,
		Winner: msg.Winner,
		Amount: amount,
		Cut:    cut.Uint64(),
	})
	x.after = append(x.after, func() { metrics.RecordPayout(amount) })

	a.logger.Info("payout sent", "pool", p.ID, "round", round, "winner", msg.Winner, "amount", amount)
	return okEvent("PayoutSent", map[string]string{
		"poolId": u64(p.ID),
		"round":  u64(round),
		"winner": msg.Winner,
		"amount": u64(amount),
		"cut":    cut.String(),
	}), nil
}

// lottery/withdraw_cut moves whatever the escrow holds between rounds (the
// accumulated cuts) to the authority or a chosen account.
func handleWithdrawCut(a *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.LotteryWithdrawCutTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if err := requireAccountAuth(x.st, x.env, msg.Authority); err != nil {
		return nil, err
	}
	if err := consumeNonce(x.st, x.env); err != nil {
		return nil, err
	}
	p, err := x.st.Pool(msg.PoolID)
	if err != nil {
		return nil, err
	}
	if err := lottery.RequireSameIdentity(p.Authority, msg.Authority); err != nil {
		return nil, err
	}
	if p.State != lottery.StateInactive {
		return nil, lottery.ErrGameOngoing.Wrapf("pool %d is %s", p.ID, p.State)
	}
	to := msg.To
	if to == "" {
		to = p.Authority
	}
	if lottery.IsEscrowAccount(to) {
		return nil, lottery.ErrInvalidRequest.Wrapf("cannot withdraw into escrow account %q", to)
	}
	amount := x.st.Balance(p.Escrow)
	if amount == 0 {
		return nil, lottery.ErrInvalidRequest.Wrapf("escrow of pool %d is empty", p.ID)
	}
	if err := x.st.Transfer(p.Escrow, to, amount); err != nil {
		return nil, err
	}

	a.logger.Info("cut withdrawn", "pool", p.ID, "to", to, "amount", amount)
	return okEvent("CutWithdrawn", map[string]string{
		"poolId": u64(p.ID),
		"to":     to,
		"amount": u64(amount),
	}), nil
}
