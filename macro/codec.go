package macro

import (
	"encoding/json"
	"fmt"
	"math"
)

// The wire structs fix the field order of each kind in the file.

type moveJSON struct {
	Type string  `json:"type"`
	X    int     `json:"x"`
	Y    int     `json:"y"`
	Time float64 `json:"time"`
}

type clickJSON struct {
	Type    string  `json:"type"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Button  string  `json:"button"`
	Pressed bool    `json:"pressed"`
	Time    float64 `json:"time"`
}

type scrollJSON struct {
	Type string  `json:"type"`
	X    int     `json:"x"`
	Y    int     `json:"y"`
	DX   int     `json:"dx"`
	DY   int     `json:"dy"`
	Time float64 `json:"time"`
}

type keyJSON struct {
	Type string  `json:"type"`
	Key  string  `json:"key"`
	Time float64 `json:"time"`
}

// wireEvent accepts every kind on decode. Coordinates are numbers rather
// than ints because older editors wrote them as floats.
type wireEvent struct {
	Type    string   `json:"type"`
	Time    *float64 `json:"time"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Button  *string  `json:"button"`
	Pressed *bool    `json:"pressed"`
	DX      *float64 `json:"dx"`
	DY      *float64 `json:"dy"`
	Key     *string  `json:"key"`
}

// MarshalJSON encodes e in the macro file format.
func (e Event) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	var v any
	switch e.Kind {
	case KindMove:
		v = moveJSON{Type: e.Kind.String(), X: e.X, Y: e.Y, Time: e.Time}
	case KindClick:
		v = clickJSON{Type: e.Kind.String(), X: e.X, Y: e.Y, Button: e.Button.String(), Pressed: e.Pressed, Time: e.Time}
	case KindScroll:
		v = scrollJSON{Type: e.Kind.String(), X: e.X, Y: e.Y, DX: e.DX, DY: e.DY, Time: e.Time}
	default:
		v = keyJSON{Type: e.Kind.String(), Key: e.Key, Time: e.Time}
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes one event object.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	kind, err := ParseKind(w.Type)
	if err != nil {
		return err
	}
	if w.Time == nil {
		return fmt.Errorf("%w: %s without time", ErrInvalidEvent, kind)
	}
	out := Event{Kind: kind, Time: *w.Time}

	if kind == KindMove || kind == KindClick || kind == KindScroll {
		if w.X == nil || w.Y == nil {
			return fmt.Errorf("%w: %s without coordinates", ErrInvalidEvent, kind)
		}
		out.X, out.Y = toInt(*w.X), toInt(*w.Y)
	}

	switch kind {
	case KindClick:
		if w.Button == nil || w.Pressed == nil {
			return fmt.Errorf("%w: click without button state", ErrInvalidEvent)
		}
		if out.Button, err = ParseButton(*w.Button); err != nil {
			return err
		}
		out.Pressed = *w.Pressed
	case KindScroll:
		if w.DX == nil || w.DY == nil {
			return fmt.Errorf("%w: scroll without deltas", ErrInvalidEvent)
		}
		out.DX, out.DY = toInt(*w.DX), toInt(*w.DY)
	case KindKeyPress, KindKeyRelease:
		if w.Key == nil {
			return fmt.Errorf("%w: %s without key", ErrInvalidEvent, kind)
		}
		out.Key = *w.Key
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*e = out
	return nil
}

func toInt(f float64) int {
	return int(math.Round(f))
}

// Marshal encodes t as an indented JSON array.
func Marshal(t *Timeline) ([]byte, error) {
	events := t.Events()
	if events == nil {
		events = []Event{}
	}
	data, err := json.MarshalIndent(events, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal timeline: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a JSON array of events.
func Unmarshal(data []byte) (*Timeline, error) {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}
	return NewTimeline(events...)
}
