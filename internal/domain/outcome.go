package domain

// Outcome tells the caller whether a command changed session state.
// Only applied commands are broadcast.
type Outcome uint8

const (
	Ignored Outcome = iota
	Applied
)

// ShouldBroadcast returns true if observers need a fresh snapshot
func (o Outcome) ShouldBroadcast() bool {
	return o == Applied
}

// String returns the string representation of the outcome
func (o Outcome) String() string {
	if o == Applied {
		return "applied"
	}
	return "ignored"
}

func outcomeOf(applied bool) Outcome {
	if applied {
		return Applied
	}
	return Ignored
}
