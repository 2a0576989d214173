package app

import (
	abci "github.com/cometbft/cometbft/abci/types"

	"onchainlotto/internal/codec"
)

// bank/mint is an unsigned devnet faucet.
func handleBankMint(_ *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.BankMintTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if msg.To == "" || msg.Amount == 0 {
		return nil, ErrInvalidTx.Wrap("missing to/amount")
	}
	if err := x.st.Credit(msg.To, msg.Amount); err != nil {
		return nil, err
	}
	return okEvent("BankMinted", map[string]string{
		"to":     msg.To,
		"amount": u64(msg.Amount),
	}), nil
}

func handleBankSend(_ *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.BankSendTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if msg.From == "" || msg.To == "" || msg.Amount == 0 {
		return nil, ErrInvalidTx.Wrap("missing from/to/amount")
	}
	if err := requireAccountAuth(x.st, x.env, msg.From); err != nil {
		return nil, err
	}
	if err := consumeNonce(x.st, x.env); err != nil {
		return nil, err
	}
	if err := x.st.Transfer(msg.From, msg.To, msg.Amount); err != nil {
		return nil, err
	}
	return okEvent("BankSent", map[string]string{
		"from":   msg.From,
		"to":     msg.To,
		"amount": u64(msg.Amount),
	}), nil
}

func handleAuthRegisterAccount(_ *LottoApp, x *execCtx) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.AuthRegisterAccountTx](x.env)
	if err != nil {
		return nil, ErrInvalidTx.Wrap(err.Error())
	}
	if err := requireRegisterAccountAuth(x.env, msg); err != nil {
		return nil, err
	}
	if existing, ok := x.st.AccountKeys[msg.Account]; ok && string(existing) != string(msg.PubKey) {
		return nil, ErrUnauthorized.Wrapf("account %q already has a different pubKey", msg.Account)
	}
	if err := consumeNonce(x.st, x.env); err != nil {
		return nil, err
	}
	x.st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
	return okEvent("AccountRegistered", map[string]string{
		"account": msg.Account,
	}), nil
}
