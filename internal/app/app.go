package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"onchainlotto/internal/codec"
	"onchainlotto/internal/lottery"
	"onchainlotto/internal/metrics"
	"onchainlotto/internal/recorder"
	"onchainlotto/internal/state"
)

const (
	AppVersion uint64 = 1
)

type Options struct {
	Logger log.Logger

	// DBBackend is a cosmos-db backend name; empty means goleveldb.
	DBBackend string

	// PoolParams are used for create_pool fields left unset.
	PoolParams lottery.Params

	Recorder recorder.Recorder
}

type LottoApp struct {
	*abci.BaseApplication

	home     string
	logger   log.Logger
	params   lottery.Params
	store    *state.Store
	recorder recorder.Recorder

	mu       sync.Mutex
	st       *state.State
	lastHash []byte

	// history of the current block, flushed to the recorder after Commit.
	pendingRounds  []recorder.RoundResult
	pendingPayouts []recorder.PayoutEvent
}

func New(home string, opts Options) (*LottoApp, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.PoolParams.PoolCut.IsNil() {
		opts.PoolParams = lottery.DefaultParams()
	}
	if err := opts.PoolParams.Validate(); err != nil {
		return nil, fmt.Errorf("pool params: %w", err)
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}

	store, err := state.OpenStore(opts.DBBackend, filepath.Join(home, "data"))
	if err != nil {
		return nil, err
	}
	st, err := store.Load()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a := &LottoApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		logger:          opts.Logger.With("module", "lottery"),
		params:          opts.PoolParams,
		store:           store,
		recorder:        opts.Recorder,
		st:              st,
		lastHash:        st.AppHash(),
	}
	a.logger.Info("state loaded", "height", st.Height, "pools", len(st.Pools))
	return a, nil
}

// Close releases the state database and the recorder.
func (a *LottoApp) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.store.Close()
	if rerr := a.recorder.Close(); err == nil {
		err = rerr
	}
	return err
}

func (a *LottoApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "lottod",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *LottoApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		codespace, code, msg := errorsmod.ABCIInfo(ErrTxDecode.Wrap(err.Error()), false)
		return &abci.CheckTxResponse{Codespace: codespace, Code: code, Log: msg}, nil
	}
	// Signatures and nonces are checked when the tx executes.
	return &abci.CheckTxResponse{Code: 0}, nil
}

// Genesis is the optional app_state of the genesis file.
type Genesis struct {
	Accounts map[string]uint64 `json:"accounts,omitempty"`
}

func (a *LottoApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(req.AppStateBytes) == 0 {
		return &abci.InitChainResponse{}, nil
	}
	var gen Genesis
	if err := json.Unmarshal(req.AppStateBytes, &gen); err != nil {
		return nil, fmt.Errorf("decode genesis app_state: %w", err)
	}
	for addr, bal := range gen.Accounts {
		if err := a.st.Credit(addr, bal); err != nil {
			return nil, fmt.Errorf("genesis account %q: %w", addr, err)
		}
	}
	a.lastHash = a.st.AppHash()
	a.logger.Info("genesis applied", "accounts", len(gen.Accounts))
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}

func (a *LottoApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	a.st.Height = req.Height
	blockTime := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height, blockTime)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	metrics.ObserveBlock(req.Height, time.Since(start))
	metrics.SetPools(a.poolsByState())

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *LottoApp) poolsByState() map[string]int {
	out := map[string]int{}
	for _, p := range a.st.Pools {
		out[string(p.State)]++
	}
	return out
}

func (a *LottoApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Save(a.st); err != nil {
		// Returning an error halts the node; continuing would fork local state from disk.
		return nil, err
	}
	a.flushHistory()
	return &abci.CommitResponse{}, nil
}

// flushHistory hands the committed block's rounds and payouts to the recorder.
// Recorder failures are logged; they never affect consensus.
func (a *LottoApp) flushHistory() {
	for i := range a.pendingRounds {
		if err := a.recorder.RecordRound(&a.pendingRounds[i]); err != nil {
			a.logger.Error("record round", "pool", a.pendingRounds[i].PoolID, "err", err)
		}
	}
	for i := range a.pendingPayouts {
		if err := a.recorder.RecordPayout(&a.pendingPayouts[i]); err != nil {
			a.logger.Error("record payout", "pool", a.pendingPayouts[i].PoolID, "err", err)
		}
	}
	a.pendingRounds = a.pendingRounds[:0]
	a.pendingPayouts = a.pendingPayouts[:0]
}

func queryErr(err error, height int64) *abci.QueryResponse {
	codespace, code, msg := errorsmod.ABCIInfo(err, false)
	return &abci.QueryResponse{Codespace: codespace, Code: code, Log: msg, Height: height}
}

func (a *LottoApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /account/<addr>
	// - /pool/<id>
	// - /pools
	// - /params
	path := strings.TrimSpace(req.Path)
	var v any
	switch {
	case path == "/pools":
		v = a.st.SortedPools()
	case path == "/params":
		v = a.params
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		_, registered := a.st.AccountKeys[addr]
		v = map[string]any{
			"addr":       addr,
			"balance":    a.st.Balance(addr),
			"registered": registered,
			"nonce":      a.st.NonceMax[addr],
		}
	case strings.HasPrefix(path, "/pool/"):
		raw := strings.TrimPrefix(path, "/pool/")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return queryErr(lottery.ErrInvalidRequest.Wrapf("invalid pool id %q", raw), a.st.Height), nil
		}
		p, err := a.st.Pool(id)
		if err != nil {
			return queryErr(err, a.st.Height), nil
		}
		v = p
	default:
		return queryErr(ErrUnknownQuery.Wrap(path), a.st.Height), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return queryErr(err, a.st.Height), nil
	}
	return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
}

// execCtx carries one tx through its handler. Handlers mutate st, which is a
// staged copy; nothing they do is visible unless the handler succeeds.
type execCtx struct {
	st     *state.State
	env    codec.TxEnvelope
	height int64
	now    int64

	rounds  []recorder.RoundResult
	payouts []recorder.PayoutEvent
	after   []func()
}

type handler func(a *LottoApp, x *execCtx) (*abci.ExecTxResult, error)

var handlers = map[string]handler{
	codec.TypeBankMint:            handleBankMint,
	codec.TypeBankSend:            handleBankSend,
	codec.TypeAuthRegisterAccount: handleAuthRegisterAccount,

	codec.TypeLotteryCreatePool:  handleCreatePool,
	codec.TypeLotteryStartGame:   handleStartGame,
	codec.TypeLotteryBuyTicket:   handleBuyTicket,
	codec.TypeLotteryEndGame:     handleEndGame,
	codec.TypeLotteryPayout:      handlePayout,
	codec.TypeLotteryWithdrawCut: handleWithdrawCut,
}

// deliverTx executes one tx against a clone of state and adopts the clone
// only if the tx succeeds, so a failed tx has no effect at all.
func (a *LottoApp) deliverTx(txBytes []byte, height int64, nowUnix int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return a.reject("", ErrTxDecode.Wrap(err.Error()))
	}
	h, ok := handlers[env.Type]
	if !ok {
		return a.reject(env.Type, ErrUnknownTx.Wrap(env.Type))
	}

	staged, err := a.st.Clone()
	if err != nil {
		return a.reject(env.Type, err)
	}
	x := &execCtx{st: staged, env: env, height: height, now: nowUnix}
	res, err := h(a, x)
	if err != nil {
		return a.reject(env.Type, err)
	}

	a.st = staged
	a.pendingRounds = append(a.pendingRounds, x.rounds...)
	a.pendingPayouts = append(a.pendingPayouts, x.payouts...)
	for _, fn := range x.after {
		fn()
	}
	metrics.RecordTx(env.Type, "", 0)
	return res
}

func (a *LottoApp) reject(txType string, err error) *abci.ExecTxResult {
	res := errResult(err)
	a.logger.Debug("tx rejected", "type", txType, "codespace", res.Codespace, "code", res.Code, "log", res.Log)
	metrics.RecordTx(txType, res.Codespace, res.Code)
	return res
}

func event(typ string, attrs map[string]string) abci.Event {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return ev
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{event(typ, attrs)},
	}
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
