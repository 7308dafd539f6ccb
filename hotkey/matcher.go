package hotkey

import "go.aimuz.me/supermacro/keys"

// Activation is a decoded hotkey edge. Pressed is false when a key of an
// active combination is released.
type Activation struct {
	Action  Action
	Pressed bool
}

// Matcher turns a key up/down stream into activations. A combination fires
// when the held keys are exactly its keys, so ctrl+f1 does not also fire f1.
// Auto-repeat downs are ignored. Not safe for concurrent use.
type Matcher struct {
	bindings Bindings
	held     keys.Set
	active   map[Action]bool
}

// NewMatcher returns a matcher for b.
func NewMatcher(b Bindings) *Matcher {
	m := &Matcher{}
	m.Reset(b)
	return m
}

// Reset replaces the bindings and forgets held keys.
func (m *Matcher) Reset(b Bindings) {
	m.bindings = b
	m.held = make(keys.Set)
	m.active = make(map[Action]bool)
}

// KeyDown records k as held and returns the activations it completes.
func (m *Matcher) KeyDown(k keys.Key) []Activation {
	if !m.held.Add(k) {
		return nil
	}
	var out []Activation
	for _, a := range Actions {
		c := m.bindings.Combo(a)
		if !c.Contains(k) || !c.MatchedBy(m.held) {
			continue
		}
		m.active[a] = true
		out = append(out, Activation{Action: a, Pressed: true})
	}
	return out
}

// KeyUp releases k and returns the releases of combinations it ends.
func (m *Matcher) KeyUp(k keys.Key) []Activation {
	m.held.Remove(k)
	var out []Activation
	for _, a := range Actions {
		if m.active[a] && m.bindings.Combo(a).Contains(k) {
			delete(m.active, a)
			out = append(out, Activation{Action: a})
		}
	}
	return out
}
