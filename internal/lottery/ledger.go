package lottery

// TicketLedger is the ordered list of ticket holders of the current round.
// Entries are only appended; Reset clears them for the next round.
type TicketLedger struct {
	Entries  []string `json:"entries"`
	Capacity uint16   `json:"capacity"`
}

func NewTicketLedger(capacity uint16) TicketLedger {
	return TicketLedger{Entries: []string{}, Capacity: capacity}
}

func (l *TicketLedger) Len() uint16 {
	return uint16(len(l.Entries))
}

func (l *TicketLedger) Full() bool {
	return len(l.Entries) >= int(l.Capacity)
}

func (l *TicketLedger) At(i uint16) (string, error) {
	if int(i) >= len(l.Entries) {
		return "", ErrInvalidRequest.Wrapf("ticket index %d out of range [0, %d)", i, len(l.Entries))
	}
	return l.Entries[i], nil
}

// Append records id as the next entry. It never overwrites or drops entries.
func (l *TicketLedger) Append(id string) error {
	if id == "" {
		return ErrInvalidRequest.Wrap("missing ticket holder")
	}
	if l.Full() {
		return ErrMaxPlayers.Wrapf("ledger holds %d of %d tickets", len(l.Entries), l.Capacity)
	}
	l.Entries = append(l.Entries, id)
	return nil
}

func (l *TicketLedger) Reset() {
	l.Entries = []string{}
}
