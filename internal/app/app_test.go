package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainlotto/internal/codec"
	"onchainlotto/internal/lottery"
)

const (
	testHeight = int64(1)
	testNow    = int64(1_700_000_000)
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func txBytes(t *testing.T, typ string, value any) []byte {
	t.Helper()
	return mustMarshal(t, map[string]any{
		"type":  typ,
		"value": value,
	})
}

func testEd25519Key(id string) (ed25519.PublicKey, ed25519.PrivateKey) {
	seed := sha256.Sum256([]byte("lotto-test-key/" + id))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv.Public().(ed25519.PublicKey), priv
}

var testNonce atomic.Uint64

func txBytesSigned(t *testing.T, typ string, value any, signer string) []byte {
	t.Helper()
	_, priv := testEd25519Key(signer)
	valueBytes := mustMarshal(t, value)
	nonce := strconv.FormatUint(testNonce.Add(1), 10)
	sig := ed25519.Sign(priv, txAuthSignBytesV0(typ, valueBytes, nonce, signer))
	return mustMarshal(t, codec.TxEnvelope{
		Type:   typ,
		Value:  valueBytes,
		Nonce:  nonce,
		Signer: signer,
		Sig:    sig,
	})
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func parseU64(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		t.Fatalf("parse uint64 %q: %v", s, err)
	}
	return n
}

func newTestApp(t *testing.T) *LottoApp {
	t.Helper()
	a, err := New(t.TempDir(), Options{DBBackend: "memdb"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func mustOk(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	if res.Code != 0 {
		t.Fatalf("expected ok, got codespace=%q code=%d log=%q", res.Codespace, res.Code, res.Log)
	}
	return res
}

func mustFail(t *testing.T, res *abci.ExecTxResult, codespace string, code uint32) {
	t.Helper()
	if res.Code != code || res.Codespace != codespace {
		t.Fatalf("expected %s/%d, got codespace=%q code=%d log=%q", codespace, code, res.Codespace, res.Code, res.Log)
	}
}

func mintTestTokens(t *testing.T, a *LottoApp, height int64, to string, amount uint64) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, codec.TypeBankMint, map[string]any{"to": to, "amount": amount}), height, testNow))
}

func registerTestAccount(t *testing.T, a *LottoApp, height int64, account string) {
	t.Helper()
	pub, _ := testEd25519Key(account)
	mustOk(t, a.deliverTx(txBytesSigned(t, codec.TypeAuthRegisterAccount, map[string]any{
		"account": account,
		"pubKey":  []byte(pub),
	}, account), height, testNow))
}

// setupPool funds and registers op plus players and creates a default pool
// owned by op.
func setupPool(t *testing.T, a *LottoApp, params map[string]any, players ...string) uint64 {
	t.Helper()
	registerTestAccount(t, a, testHeight, "op")
	for _, p := range players {
		mintTestTokens(t, a, testHeight, p, 10*lottery.DefaultTicketPrice)
		registerTestAccount(t, a, testHeight, p)
	}
	value := map[string]any{"authority": "op"}
	for k, v := range params {
		value[k] = v
	}
	res := mustOk(t, a.deliverTx(txBytes(t, codec.TypeLotteryCreatePool, value), testHeight, testNow))
	return parseU64(t, attr(findEvent(res.Events, "PoolCreated"), "poolId"))
}

func startGame(t *testing.T, a *LottoApp, poolID uint64, reveal string) *abci.ExecTxResult {
	t.Helper()
	return a.deliverTx(txBytesSigned(t, codec.TypeLotteryStartGame, map[string]any{
		"poolId":     poolID,
		"authority":  "op",
		"commitment": lottery.Commit(reveal).String(),
	}, "op"), testHeight, testNow)
}

func buyTicket(t *testing.T, a *LottoApp, poolID uint64, buyer string) *abci.ExecTxResult {
	t.Helper()
	return a.deliverTx(txBytesSigned(t, codec.TypeLotteryBuyTicket, map[string]any{
		"poolId": poolID,
		"buyer":  buyer,
	}, buyer), testHeight, testNow)
}

func endGame(t *testing.T, a *LottoApp, poolID uint64, reveal string, now int64) *abci.ExecTxResult {
	t.Helper()
	return a.deliverTx(txBytesSigned(t, codec.TypeLotteryEndGame, map[string]any{
		"poolId":    poolID,
		"authority": "op",
		"reveal":    reveal,
	}, "op"), testHeight, now)
}

func payout(t *testing.T, a *LottoApp, poolID uint64, winner string) *abci.ExecTxResult {
	t.Helper()
	return a.deliverTx(txBytesSigned(t, codec.TypeLotteryPayout, map[string]any{
		"poolId":    poolID,
		"authority": "op",
		"winner":    winner,
	}, "op"), testHeight, testNow)
}
