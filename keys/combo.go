package keys

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidCombo is returned when a key-combination string cannot be parsed.
var ErrInvalidCombo = errors.New("invalid key combination")

// modifierOrder fixes where modifiers sort inside a Combo.
var modifierOrder = map[Code]int{Ctrl: 0, Shift: 1, Alt: 2, Cmd: 3}

// Combo is a normalized key combination such as ctrl+shift+f1. Modifiers
// come first in a fixed order, followed by the remaining keys sorted by
// name; the last key is the trigger.
type Combo struct {
	keys []Key
}

// NewCombo builds a normalized Combo from ks, dropping duplicates.
func NewCombo(ks ...Key) Combo {
	out := make([]Key, 0, len(ks))
	for _, k := range ks {
		if k.IsZero() || slices.Contains(out, k) {
			continue
		}
		out = append(out, k)
	}
	slices.SortStableFunc(out, compareKeys)
	return Combo{keys: out}
}

func compareKeys(a, b Key) int {
	am, bm := a.IsModifier(), b.IsModifier()
	switch {
	case am && bm:
		return modifierOrder[a.Code] - modifierOrder[b.Code]
	case am:
		return -1
	case bm:
		return 1
	}
	return strings.Compare(a.String(), b.String())
}

// ParseCombo parses strings like "Ctrl+Shift+F1", "f2" or "alt++".
// Parts are separated by '+'; a trailing "++" names the plus key.
func ParseCombo(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, fmt.Errorf("%w: empty", ErrInvalidCombo)
	}

	var parts []string
	if s == "+" {
		parts = []string{"+"}
	} else if strings.HasSuffix(s, "++") {
		parts = append(strings.Split(strings.TrimSuffix(s, "++"), "+"), "+")
	} else {
		parts = strings.Split(s, "+")
	}

	ks := make([]Key, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return Combo{}, fmt.Errorf("%w: %q has an empty part", ErrInvalidCombo, s)
		}
		k, err := Parse(part)
		if err != nil {
			return Combo{}, fmt.Errorf("%w: %w", ErrInvalidCombo, err)
		}
		ks = append(ks, k)
	}
	return NewCombo(ks...), nil
}

// String returns the canonical form, e.g. "ctrl+shift+f1".
func (c Combo) String() string {
	names := make([]string, len(c.keys))
	for i, k := range c.keys {
		names[i] = k.String()
	}
	return strings.Join(names, "+")
}

// IsZero reports whether c holds no keys.
func (c Combo) IsZero() bool { return len(c.keys) == 0 }

// Len returns the number of keys in c.
func (c Combo) Len() int { return len(c.keys) }

// Keys returns a copy of the keys in canonical order.
func (c Combo) Keys() []Key { return slices.Clone(c.keys) }

// Trigger returns the key whose press completes the combination.
func (c Combo) Trigger() Key {
	if len(c.keys) == 0 {
		return Key{}
	}
	return c.keys[len(c.keys)-1]
}

// Rest returns every key but the trigger.
func (c Combo) Rest() []Key {
	if len(c.keys) == 0 {
		return nil
	}
	return slices.Clone(c.keys[:len(c.keys)-1])
}

// Contains reports whether k is part of c.
func (c Combo) Contains(k Key) bool { return slices.Contains(c.keys, k) }

// Equal reports whether c and o hold the same keys.
func (c Combo) Equal(o Combo) bool { return slices.Equal(c.keys, o.keys) }

// MatchedBy reports whether held is exactly the set of keys in c.
func (c Combo) MatchedBy(held Set) bool {
	if c.IsZero() || held.Len() != len(c.keys) {
		return false
	}
	for _, k := range c.keys {
		if !held.Has(k) {
			return false
		}
	}
	return true
}

// Set is a set of keys, typically the keys currently held down.
type Set map[Key]struct{}

// Add inserts k and reports whether it was absent.
func (s Set) Add(k Key) bool {
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}

// Remove deletes k and reports whether it was present.
func (s Set) Remove(k Key) bool {
	if _, ok := s[k]; !ok {
		return false
	}
	delete(s, k)
	return true
}

// Has reports whether k is in s.
func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Len returns the number of keys in s.
func (s Set) Len() int { return len(s) }
