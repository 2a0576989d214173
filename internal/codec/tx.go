package codec

import (
	"encoding/json"
	"fmt"
)

// Tx types routed by the app.
const (
	TypeBankMint            = "bank/mint"
	TypeBankSend            = "bank/send"
	TypeAuthRegisterAccount = "auth/register_account"

	TypeLotteryCreatePool  = "lottery/create_pool"
	TypeLotteryStartGame   = "lottery/start_game"
	TypeLotteryBuyTicket   = "lottery/buy_ticket"
	TypeLotteryEndGame     = "lottery/end_game"
	TypeLotteryPayout      = "lottery/payout"
	TypeLotteryWithdrawCut = "lottery/withdraw_cut"
)

// TxEnvelope is the transaction container. CometBFT transactions are opaque
// bytes; lottod uses JSON.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Tx auth:
	// - Nonce: included in the signed message for replay protection (must increase per signer).
	// - Signer: the account acting in this tx.
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// DecodeValue unmarshals env.Value into a tx body of the matching type.
func DecodeValue[T any](env TxEnvelope) (T, error) {
	var v T
	if len(env.Value) == 0 {
		return v, fmt.Errorf("%s: missing value", env.Type)
	}
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return v, fmt.Errorf("bad %s value: %w", env.Type, err)
	}
	return v, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth ----

type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Lottery ----

// LotteryCreatePoolTx creates a pool owned by Authority. Zero or empty params
// fall back to the node's configured defaults.
type LotteryCreatePoolTx struct {
	Authority   string `json:"authority"`
	MaxPlayers  uint16 `json:"maxPlayers,omitempty"`
	TicketPrice uint64 `json:"ticketPrice,omitempty"`
	PoolCut     string `json:"poolCut,omitempty"`
}

type LotteryStartGameTx struct {
	PoolID     uint64 `json:"poolId"`
	Authority  string `json:"authority"`
	Commitment string `json:"commitment"` // hex sha256 of the reveal
}

type LotteryBuyTicketTx struct {
	PoolID uint64 `json:"poolId"`
	Buyer  string `json:"buyer"`
}

type LotteryEndGameTx struct {
	PoolID    uint64 `json:"poolId"`
	Authority string `json:"authority"`
	Reveal    string `json:"reveal"` // "<seed>:<salt>"
}

type LotteryPayoutTx struct {
	PoolID    uint64 `json:"poolId"`
	Authority string `json:"authority"`
	Winner    string `json:"winner"`
}

// LotteryWithdrawCutTx sweeps the escrow balance of an inactive pool to To.
type LotteryWithdrawCutTx struct {
	PoolID    uint64 `json:"poolId"`
	Authority string `json:"authority"`
	To        string `json:"to"`
}
