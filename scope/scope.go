// Package scope decides whether input activity belongs to the configured
// target application.
package scope

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"
)

// ErrNoForeground is returned by resolvers when no window has focus.
var ErrNoForeground = errors.New("no foreground window")

// globalNames are the spellings that select the Global target. The last one
// is what older configuration files store.
var globalNames = []string{"", "global", "*", "全局"}

// Resolver reports the executable name of the process that owns the
// foreground window.
type Resolver interface {
	ForegroundProcess() (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() (string, error)

// ForegroundProcess calls f.
func (f ResolverFunc) ForegroundProcess() (string, error) { return f() }

// Target is either Global or a process executable name.
type Target struct {
	global bool
	name   string
}

// Global matches every foreground application.
var Global = Target{global: true}

// Process returns a target matching the named executable, compared
// case-insensitively.
func Process(name string) Target {
	return ParseTarget(name)
}

// ParseTarget maps a configured value to a Target. Empty, "global" and
// the legacy "全局" select Global.
func ParseTarget(s string) Target {
	s = strings.TrimSpace(s)
	for _, g := range globalNames {
		if strings.EqualFold(s, g) {
			return Global
		}
	}
	return Target{name: s}
}

// IsGlobal reports whether t matches everything.
func (t Target) IsGlobal() bool { return t.global }

// Name returns the executable name, or "" for Global.
func (t Target) Name() string { return t.name }

// String returns "global" or the executable name.
func (t Target) String() string {
	if t.global {
		return "global"
	}
	return t.name
}

// Matches reports whether the process name satisfies t.
func (t Target) Matches(process string) bool {
	if t.global {
		return true
	}
	if process == "" {
		return false
	}
	fold := cases.Fold()
	want := fold.String(t.name)
	got := fold.String(filepath.Base(strings.ReplaceAll(process, `\`, "/")))
	return got == want
}

// Filter is the boolean gate consulted before capture and hotkey actions.
// The target may be replaced at any time; readers see either the old or
// the new target, never a mix.
type Filter struct {
	resolver Resolver
	target   atomic.Pointer[Target]
}

// NewFilter returns a filter over r, starting with target t.
func NewFilter(r Resolver, t Target) *Filter {
	f := &Filter{resolver: r}
	f.target.Store(&t)
	return f
}

// SetTarget replaces the target.
func (f *Filter) SetTarget(t Target) {
	f.target.Store(&t)
}

// Target returns the current target.
func (f *Filter) Target() Target {
	return *f.target.Load()
}

// Allows reports whether the foreground application matches the target.
// Resolution failures count as no match and are logged, never returned.
func (f *Filter) Allows() bool {
	t := f.Target()
	if t.IsGlobal() {
		return true
	}
	if f.resolver == nil {
		slog.Debug("resolve foreground process", "error", "no resolver")
		return false
	}

	name, err := f.resolver.ForegroundProcess()
	if err != nil {
		slog.Debug("resolve foreground process", "target", t.name, "error", err)
		return false
	}
	return t.Matches(name)
}
