package hotkey

import (
	"errors"
	"testing"
)

func TestParseBindings(t *testing.T) {
	b, err := ParseBindings("F1", "f2", "Ctrl+F4", "<f5>")
	if err != nil {
		t.Fatalf("ParseBindings: %v", err)
	}
	want := "start_record=f1 stop_record=f2 play_macro=ctrl+f4 stop_play=f5"
	if got := b.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := len(b.Combos()); got != 4 {
		t.Errorf("Combos() len = %d", got)
	}
}

func TestParseBindingsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   [4]string
		want error
	}{
		{"duplicate", [4]string{"f1", "f1", "f4", "f5"}, ErrDuplicateBinding},
		{"duplicate after normalizing", [4]string{"ctrl+a", "f2", "A+Control", "f5"}, ErrDuplicateBinding},
		{"empty", [4]string{"f1", "", "f4", "f5"}, ErrInvalidCombo},
		{"unknown key", [4]string{"f1", "f2", "hyper+q", "f5"}, ErrInvalidCombo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBindings(tt.in[0], tt.in[1], tt.in[2], tt.in[3])
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefaultBindingsValid(t *testing.T) {
	b := DefaultBindings()
	if err := b.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := b.Combo(PlayMacro).String(); got != "f4" {
		t.Errorf("play = %q, want f4", got)
	}
	if err := (Bindings{}).Validate(); !errors.Is(err, ErrInvalidCombo) {
		t.Errorf("zero bindings: %v", err)
	}
}
