package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"onchainlotto/internal/lottery"
)

type State struct {
	Height int64 `json:"height"`

	NextPoolID  uint64                   `json:"nextPoolId"`
	Accounts    map[string]uint64        `json:"accounts"`
	AccountKeys map[string][]byte        `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64        `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce, for replay protection
	Pools       map[uint64]*lottery.Pool `json:"pools"`
}

func NewState() *State {
	return &State{
		Height:      0,
		NextPoolID:  1,
		Accounts:    map[string]uint64{},
		AccountKeys: map[string][]byte{},
		NonceMax:    map[string]uint64{},
		Pools:       map[uint64]*lottery.Pool{},
	}
}

func (s *State) normalize() {
	if s.Accounts == nil {
		s.Accounts = map[string]uint64{}
	}
	if s.AccountKeys == nil {
		s.AccountKeys = map[string][]byte{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Pools == nil {
		s.Pools = map[uint64]*lottery.Pool{}
	}
	if s.NextPoolID == 0 {
		s.NextPoolID = 1
	}
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	out.normalize()
	return &out, nil
}

func (s *State) AppHash() []byte {
	// encoding/json sorts map keys, but pool ids would sort as strings; hash a
	// normalized view with explicit slices instead.
	type accountKV struct {
		Addr    string `json:"addr"`
		Balance uint64 `json:"balance"`
	}
	type accountKeyKV struct {
		Addr   string `json:"addr"`
		PubKey []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Addr: k, Balance: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Addr < accounts[j].Addr })

	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	normalized := struct {
		Height      int64           `json:"height"`
		NextPoolID  uint64          `json:"nextPoolId"`
		Accounts    []accountKV     `json:"accounts"`
		AccountKeys []accountKeyKV  `json:"accountKeys,omitempty"`
		NonceMax    []nonceKV       `json:"nonceMax,omitempty"`
		Pools       []*lottery.Pool `json:"pools"`
	}{
		Height:      s.Height,
		NextPoolID:  s.NextPoolID,
		Accounts:    accounts,
		AccountKeys: accountKeys,
		NonceMax:    nonces,
		Pools:       s.SortedPools(),
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// SortedPools lists pools by ascending id.
func (s *State) SortedPools() []*lottery.Pool {
	pools := make([]*lottery.Pool, 0, len(s.Pools))
	for _, p := range s.Pools {
		pools = append(pools, p)
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })
	return pools
}

func (s *State) Pool(id uint64) (*lottery.Pool, error) {
	p := s.Pools[id]
	if p == nil {
		return nil, lottery.ErrPoolNotFound.Wrapf("pool %d", id)
	}
	return p, nil
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return ErrBalanceOverflow.Wrapf("have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return ErrInsufficientFunds.Wrapf("%s have=%d need=%d", addr, bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// Transfer moves amount from one account to another. Both balances are
// checked before either is written.
func (s *State) Transfer(from, to string, amount uint64) error {
	if from == "" || to == "" {
		return ErrInvalidAccount.Wrap("transfer with empty account")
	}
	if s.Balance(from) < amount {
		return ErrInsufficientFunds.Wrapf("%s have=%d need=%d", from, s.Balance(from), amount)
	}
	if from == to {
		return nil
	}
	if s.Balance(to) > ^uint64(0)-amount {
		return ErrBalanceOverflow.Wrapf("%s have=%d add=%d", to, s.Balance(to), amount)
	}
	s.Accounts[from] -= amount
	s.Accounts[to] += amount
	return nil
}

var _ lottery.Bank = (*State)(nil)
