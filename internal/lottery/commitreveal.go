package lottery

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RevealDelimiter separates the numeric seed from the salt in a reveal ("42:salt").
const RevealDelimiter = ":"

// Commitment is sha256(reveal), published when a round starts.
type Commitment [sha256.Size]byte

// Commit hashes the operator's secret reveal value.
func Commit(secret string) Commitment {
	return Commitment(sha256.Sum256([]byte(secret)))
}

// CommitmentFromHex decodes a 64-char hex commitment.
func CommitmentFromHex(s string) (Commitment, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Commitment{}, ErrInvalidRequest.Wrapf("commitment is not hex: %v", err)
	}
	if len(b) != sha256.Size {
		return Commitment{}, ErrInvalidRequest.Wrapf("commitment must be %d bytes, got %d", sha256.Size, len(b))
	}
	var c Commitment
	copy(c[:], b)
	return c, nil
}

func (c Commitment) IsZero() bool { return c == Commitment{} }

func (c Commitment) String() string { return hex.EncodeToString(c[:]) }

func (c Commitment) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Commitment) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return fmt.Errorf("decode commitment: %w", err)
	}
	if s == "" {
		*c = Commitment{}
		return nil
	}
	parsed, err := CommitmentFromHex(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// VerifyReveal checks that reveal hashes to commitment.
func VerifyReveal(commitment Commitment, reveal string) error {
	if Commit(reveal) != commitment {
		return ErrWrongWinningSeed.Wrap("reveal does not match commitment")
	}
	return nil
}

// ParseSeed extracts the leading decimal seed of a "<seed>:<salt>" reveal.
func ParseSeed(reveal string) (uint64, error) {
	token, _, ok := strings.Cut(reveal, RevealDelimiter)
	if !ok {
		return 0, ErrWrongWinningSeed.Wrapf("reveal has no %q delimiter", RevealDelimiter)
	}
	if token == "" {
		return 0, ErrWrongWinningSeed.Wrap("reveal has an empty seed")
	}
	seed, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, ErrWrongWinningSeed.Wrapf("seed %q: %v", token, err)
	}
	return seed, nil
}

// WinningIndex is (seed XOR now) mod n.
//
// The authority picks when to reveal and therefore has some influence over
// now; this is a commit-reveal scheme, not a secure random source.
func WinningIndex(seed uint64, now int64, n uint16) (uint16, error) {
	if n == 0 {
		return 0, ErrNotEnoughPlayers.Wrap("cannot pick a winner among 0 players")
	}
	return uint16((seed ^ uint64(now)) % uint64(n)), nil
}

// VerifyAndResolve verifies reveal against commitment and derives the winning
// index in [0, n).
func VerifyAndResolve(commitment Commitment, reveal string, n uint16, clock Clock) (index uint16, seed uint64, err error) {
	if err := VerifyReveal(commitment, reveal); err != nil {
		return 0, 0, err
	}
	seed, err = ParseSeed(reveal)
	if err != nil {
		return 0, 0, err
	}
	index, err = WinningIndex(seed, clock.Now(), n)
	if err != nil {
		return 0, 0, err
	}
	return index, seed, nil
}
