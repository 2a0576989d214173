package recorder

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRound(_ *RoundResult) error  { return nil }
func (n *NoopRecorder) RecordPayout(_ *PayoutEvent) error { return nil }
func (n *NoopRecorder) Close() error                      { return nil }
