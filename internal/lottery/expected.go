package lottery

// Bank moves value between two identities' balances. A failed Transfer must
// leave both balances untouched.
type Bank interface {
	Transfer(from, to string, amount uint64) error
}

// Clock reads the host's current time in unix seconds.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// FixedClock always reports the same instant (block time).
func FixedClock(unix int64) Clock {
	return ClockFunc(func() int64 { return unix })
}
