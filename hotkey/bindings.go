// Package hotkey maps global key combinations to the four control actions
// and applies the activation-mode rules before forwarding them.
package hotkey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"go.aimuz.me/supermacro/keys"
)

var (
	ErrDuplicateBinding = errors.New("duplicate hotkey binding")
	ErrInvalidCombo     = keys.ErrInvalidCombo
	ErrHookInstall      = errors.New("install hotkey hook")
)

// Action is a logical control action.
type Action uint8

const (
	StartRecord Action = iota + 1
	StopRecord
	PlayMacro
	StopPlay
)

// Actions lists every action in binding order.
var Actions = []Action{StartRecord, StopRecord, PlayMacro, StopPlay}

func (a Action) String() string {
	switch a {
	case StartRecord:
		return "start_record"
	case StopRecord:
		return "stop_record"
	case PlayMacro:
		return "play_macro"
	case StopPlay:
		return "stop_play"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Bindings assigns one combination to each action.
type Bindings struct {
	StartRecord keys.Combo
	StopRecord  keys.Combo
	PlayMacro   keys.Combo
	StopPlay    keys.Combo
}

// ParseBindings parses and validates the four combination strings.
func ParseBindings(startRecord, stopRecord, playMacro, stopPlay string) (Bindings, error) {
	var b Bindings
	for i, s := range []string{startRecord, stopRecord, playMacro, stopPlay} {
		c, err := keys.ParseCombo(s)
		if err != nil {
			return Bindings{}, fmt.Errorf("%s: %w", Actions[i], err)
		}
		b.set(Actions[i], c)
	}
	return b, b.Validate()
}

// DefaultBindings returns F1, F2, F4 and F5.
func DefaultBindings() Bindings {
	return Bindings{
		StartRecord: keys.NewCombo(keys.Named(keys.F1)),
		StopRecord:  keys.NewCombo(keys.Named(keys.F2)),
		PlayMacro:   keys.NewCombo(keys.Named(keys.F4)),
		StopPlay:    keys.NewCombo(keys.Named(keys.F5)),
	}
}

func (b *Bindings) set(a Action, c keys.Combo) {
	switch a {
	case StartRecord:
		b.StartRecord = c
	case StopRecord:
		b.StopRecord = c
	case PlayMacro:
		b.PlayMacro = c
	case StopPlay:
		b.StopPlay = c
	}
}

// Combo returns the combination bound to a.
func (b Bindings) Combo(a Action) keys.Combo {
	switch a {
	case StartRecord:
		return b.StartRecord
	case StopRecord:
		return b.StopRecord
	case PlayMacro:
		return b.PlayMacro
	case StopPlay:
		return b.StopPlay
	}
	return keys.Combo{}
}

// Combos returns the four combinations in action order.
func (b Bindings) Combos() []keys.Combo {
	return lo.Map(Actions, func(a Action, _ int) keys.Combo { return b.Combo(a) })
}

// Validate checks that every action is bound and no two share a
// combination.
func (b Bindings) Validate() error {
	for _, a := range Actions {
		if b.Combo(a).IsZero() {
			return fmt.Errorf("%w: %s is unbound", ErrInvalidCombo, a)
		}
	}
	names := lo.Map(b.Combos(), func(c keys.Combo, _ int) string { return c.String() })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, strings.Join(dups, ", "))
	}
	return nil
}

func (b Bindings) String() string {
	parts := lo.Map(Actions, func(a Action, _ int) string {
		return a.String() + "=" + b.Combo(a).String()
	})
	return strings.Join(parts, " ")
}
