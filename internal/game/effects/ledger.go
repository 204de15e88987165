package effects

import "slices"

// Ledger holds the ongoing modifiers of a match. It is a value: every
// method returns a new Ledger and leaves the receiver untouched.
type Ledger struct {
	Temporary  []Temporary  `json:"temporary"`
	Persistent []Persistent `json:"persistent"`
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := Ledger{Persistent: slices.Clone(l.Persistent)}
	if l.Temporary != nil {
		out.Temporary = make([]Temporary, len(l.Temporary))
		for i, e := range l.Temporary {
			out.Temporary[i] = e.clone()
		}
	}
	return out
}

// Empty reports whether the ledger holds no effects.
func (l Ledger) Empty() bool {
	return len(l.Temporary) == 0 && len(l.Persistent) == 0
}
