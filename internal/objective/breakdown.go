package objective

import "sync"

// RegularizationKey is the breakdown entry holding the penalty's value.
const RegularizationKey = "Regularization"

// Entry is one row of the breakdown: the normalized weight and the raw
// value reported by the target.
type Entry struct {
	Weight float64 `json:"weight"`
	X      float64 `json:"x"`
}

// Contribution is the entry's share of the objective value.
func (e Entry) Contribution() float64 { return e.X * e.Weight }

// Breakdown maps contributor names to entries, remembering the order in which
// names were first recorded.
type Breakdown struct {
	names   []string
	entries map[string]Entry
}

func NewBreakdown() *Breakdown {
	return &Breakdown{entries: make(map[string]Entry)}
}

// Set stores e under name. A name that is already present keeps its position.
func (b *Breakdown) Set(name string, e Entry) {
	if _, ok := b.entries[name]; !ok {
		b.names = append(b.names, name)
	}
	b.entries[name] = e
}

func (b *Breakdown) Get(name string) (Entry, bool) {
	if b == nil {
		return Entry{}, false
	}
	e, ok := b.entries[name]
	return e, ok
}

// Names returns the recorded names in insertion order.
func (b *Breakdown) Names() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

func (b *Breakdown) Len() int {
	if b == nil {
		return 0
	}
	return len(b.names)
}

// Total sums the contributions of every entry.
func (b *Breakdown) Total() float64 {
	if b == nil {
		return 0
	}
	var sum float64
	for _, name := range b.names {
		sum += b.entries[name].Contribution()
	}
	return sum
}

func (b *Breakdown) Clone() *Breakdown {
	c := NewBreakdown()
	if b == nil {
		return c
	}
	c.names = append(c.names, b.names...)
	for k, v := range b.entries {
		c.entries[k] = v
	}
	return c
}

// Ledger keeps the breakdown of the latest evaluation and the one before it
// so reports can show how each contribution moved.
type Ledger struct {
	mu       sync.Mutex
	current  *Breakdown
	previous *Breakdown
}

func NewLedger() *Ledger {
	return &Ledger{current: NewBreakdown(), previous: NewBreakdown()}
}

func (l *Ledger) Record(name string, weight, x float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current.Set(name, Entry{Weight: weight, X: x})
}

// Current returns a copy of the current generation.
func (l *Ledger) Current() *Breakdown {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Clone()
}

// Previous returns a copy of the previous generation.
func (l *Ledger) Previous() *Breakdown {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.previous.Clone()
}

// Snapshot returns copies of both generations taken under one lock.
func (l *Ledger) Snapshot() (current, previous *Breakdown) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Clone(), l.previous.Clone()
}

// Advance copies every current entry into the previous generation. Entries
// of the previous generation that were not recorded again are kept.
func (l *Ledger) Advance() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, name := range l.current.names {
		l.previous.Set(name, l.current.entries[name])
	}
}
