package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	dbm "github.com/cosmos/cosmos-db"

	"onchainlotto/internal/lottery"
)

// Key layout. Every prefix is one byte; variable-length suffixes are raw
// account strings, pool ids are big-endian so they iterate in order.
var (
	keyMeta       = []byte{0x01}
	prefixBalance = []byte{0x02}
	prefixPubKey  = []byte{0x03}
	prefixNonce   = []byte{0x04}
	prefixPool    = []byte{0x05}
)

var dataPrefixes = [][]byte{prefixBalance, prefixPubKey, prefixNonce, prefixPool}

type meta struct {
	Height     int64  `json:"height"`
	NextPoolID uint64 `json:"nextPoolId"`
}

// Store persists State in a cosmos-db key-value database.
type Store struct {
	db dbm.DB
}

// OpenStore opens (or creates) the "lottod" database under dir.
func OpenStore(backend, dir string) (*Store, error) {
	if backend == "" {
		backend = string(dbm.GoLevelDBBackend)
	}
	db, err := dbm.NewDB("lottod", dbm.BackendType(backend), dir)
	if err != nil {
		return nil, fmt.Errorf("open %s db in %s: %w", backend, dir, err)
	}
	return NewStore(db), nil
}

func NewStore(db dbm.DB) *Store {
	return &Store{db: db}
}

// NewMemStore is an in-memory store for tests and throwaway nodes.
func NewMemStore() *Store {
	return NewStore(dbm.NewMemDB())
}

func (st *Store) Close() error {
	return st.db.Close()
}

func poolKey(id uint64) []byte {
	k := make([]byte, 1+8)
	k[0] = prefixPool[0]
	binary.BigEndian.PutUint64(k[1:], id)
	return k
}

func prefixed(prefix []byte, s string) []byte {
	k := make([]byte, 0, len(prefix)+len(s))
	k = append(k, prefix...)
	return append(k, s...)
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Load rebuilds State from the database. An empty database yields NewState().
func (st *Store) Load() (*State, error) {
	s := NewState()

	bz, err := st.db.Get(keyMeta)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	if bz == nil {
		return s, nil
	}
	var m meta
	if err := json.Unmarshal(bz, &m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	s.Height = m.Height
	s.NextPoolID = m.NextPoolID

	err = st.each(prefixBalance, func(k, v []byte) error {
		if len(v) != 8 {
			return fmt.Errorf("balance %q: bad length %d", k, len(v))
		}
		s.Accounts[string(k)] = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = st.each(prefixPubKey, func(k, v []byte) error {
		s.AccountKeys[string(k)] = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = st.each(prefixNonce, func(k, v []byte) error {
		if len(v) != 8 {
			return fmt.Errorf("nonce %q: bad length %d", k, len(v))
		}
		s.NonceMax[string(k)] = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = st.each(prefixPool, func(k, v []byte) error {
		if len(k) != 8 {
			return fmt.Errorf("pool key %x: bad length", k)
		}
		var p lottery.Pool
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("decode pool %d: %w", binary.BigEndian.Uint64(k), err)
		}
		s.Pools[p.ID] = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.normalize()
	return s, nil
}

// each calls fn with the suffix (key without prefix) and value of every entry under prefix.
func (st *Store) each(prefix []byte, fn func(k, v []byte) error) error {
	itr, err := dbm.IteratePrefix(st.db, prefix)
	if err != nil {
		return fmt.Errorf("iterate %x: %w", prefix, err)
	}
	defer itr.Close()
	for ; itr.Valid(); itr.Next() {
		if err := fn(itr.Key()[len(prefix):], itr.Value()); err != nil {
			return err
		}
	}
	return itr.Error()
}

// Save writes s in a single synced batch and removes keys that no longer
// exist in s.
func (st *Store) Save(s *State) error {
	want := map[string][]byte{}

	mb, err := json.Marshal(meta{Height: s.Height, NextPoolID: s.NextPoolID})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	want[string(keyMeta)] = mb
	for addr, bal := range s.Accounts {
		want[string(prefixed(prefixBalance, addr))] = u64Bytes(bal)
	}
	for addr, pk := range s.AccountKeys {
		want[string(prefixed(prefixPubKey, addr))] = pk
	}
	for signer, n := range s.NonceMax {
		want[string(prefixed(prefixNonce, signer))] = u64Bytes(n)
	}
	for id, p := range s.Pools {
		pb, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode pool %d: %w", id, err)
		}
		want[string(poolKey(id))] = pb
	}

	var stale [][]byte
	for _, prefix := range dataPrefixes {
		err := st.each(prefix, func(k, _ []byte) error {
			full := prefixed(prefix, string(k))
			if _, ok := want[string(full)]; !ok {
				stale = append(stale, full)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	batch := st.db.NewBatch()
	defer batch.Close()
	for _, k := range stale {
		if err := batch.Delete(k); err != nil {
			return fmt.Errorf("delete %x: %w", k, err)
		}
	}
	for k, v := range want {
		if err := batch.Set([]byte(k), v); err != nil {
			return fmt.Errorf("set %x: %w", k, err)
		}
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("write state batch: %w", err)
	}
	return nil
}
