package lottery

import (
	"fmt"
)

// fakeBank is an in-memory Bank used by the pool tests.
type fakeBank struct {
	balances map[string]uint64
	failNext error
	calls    int
}

func newFakeBank(funded map[string]uint64) *fakeBank {
	b := &fakeBank{balances: map[string]uint64{}}
	for k, v := range funded {
		b.balances[k] = v
	}
	return b
}

func (b *fakeBank) Transfer(from, to string, amount uint64) error {
	b.calls++
	if b.failNext != nil {
		err := b.failNext
		b.failNext = nil
		return err
	}
	if b.balances[from] < amount {
		return fmt.Errorf("insufficient funds: %s has %d, needs %d", from, b.balances[from], amount)
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}
