package macro

import (
	"fmt"
	"iter"
	"slices"
)

// Timeline is a finalized, ordered sequence of events. Insertion order is
// playback order. A Timeline is never mutated after construction; editing
// helpers return a new Timeline.
type Timeline struct {
	events []Event
}

// NewTimeline validates events and returns a Timeline holding a copy of them.
func NewTimeline(events ...Event) (*Timeline, error) {
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return &Timeline{events: slices.Clone(events)}, nil
}

// Len returns the number of events. A nil Timeline is empty.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.events)
}

// IsEmpty reports whether t holds no events.
func (t *Timeline) IsEmpty() bool { return t.Len() == 0 }

// At returns the i-th event.
func (t *Timeline) At(i int) Event { return t.events[i] }

// All iterates over the events in playback order.
func (t *Timeline) All() iter.Seq2[int, Event] {
	return func(yield func(int, Event) bool) {
		if t == nil {
			return
		}
		for i, e := range t.events {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Events returns a copy of the events.
func (t *Timeline) Events() []Event {
	if t == nil {
		return nil
	}
	return slices.Clone(t.events)
}

// Duration returns the time of the last event in seconds.
func (t *Timeline) Duration() float64 {
	if t.IsEmpty() {
		return 0
	}
	return t.events[len(t.events)-1].Time
}

// Monotonic reports whether event times never decrease. Recorded timelines
// always are; hand-edited files may not be.
func (t *Timeline) Monotonic() bool {
	for i := 1; i < t.Len(); i++ {
		if t.events[i].Time < t.events[i-1].Time {
			return false
		}
	}
	return true
}

// Count returns how many events of kind k the timeline holds.
func (t *Timeline) Count(k Kind) int {
	n := 0
	for _, e := range t.All() {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Equal reports whether t and o hold the same events in the same order.
func (t *Timeline) Equal(o *Timeline) bool {
	return slices.Equal(t.Events(), o.Events())
}

// Insert returns a new Timeline with e inserted at index i.
func (t *Timeline) Insert(i int, e Event) (*Timeline, error) {
	if i < 0 || i > t.Len() {
		return nil, fmt.Errorf("insert index %d out of range [0,%d]", i, t.Len())
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &Timeline{events: slices.Insert(t.Events(), i, e)}, nil
}

// Delete returns a new Timeline without the event at index i.
func (t *Timeline) Delete(i int) (*Timeline, error) {
	if i < 0 || i >= t.Len() {
		return nil, fmt.Errorf("delete index %d out of range [0,%d)", i, t.Len())
	}
	return &Timeline{events: slices.Delete(t.Events(), i, i+1)}, nil
}

// Builder accumulates events during a recording. It is the only mutable
// form of a timeline and is not safe for concurrent use.
type Builder struct {
	events []Event
}

// Append adds e. Times are clamped so the sequence never decreases.
func (b *Builder) Append(e Event) {
	if e.Time < 0 {
		e.Time = 0
	}
	if n := len(b.events); n > 0 && e.Time < b.events[n-1].Time {
		e.Time = b.events[n-1].Time
	}
	b.events = append(b.events, e)
}

// Len returns the number of events appended so far.
func (b *Builder) Len() int { return len(b.events) }

// Reset discards all events.
func (b *Builder) Reset() { b.events = nil }

// Finish returns the accumulated events as a Timeline and resets b.
func (b *Builder) Finish() *Timeline {
	t := &Timeline{events: b.events}
	b.events = nil
	return t
}
