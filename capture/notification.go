package capture

import (
	"fmt"
	"strings"
	"time"

	"go.aimuz.me/supermacro/macro"
)

// Mode selects which input devices a session records.
type Mode uint8

const (
	ModeBoth Mode = iota
	ModeMouse
	ModeKeyboard
)

func (m Mode) String() string {
	switch m {
	case ModeBoth:
		return "both"
	case ModeMouse:
		return "mouse"
	case ModeKeyboard:
		return "keyboard"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode resolves a configured mode name. Empty means both.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both", "all":
		return ModeBoth, nil
	case "mouse":
		return ModeMouse, nil
	case "keyboard":
		return ModeKeyboard, nil
	}
	return 0, fmt.Errorf("unknown record mode %q", s)
}

// Devices lists the sources the mode subscribes to.
func (m Mode) Devices() []Device {
	switch m {
	case ModeMouse:
		return []Device{DeviceMouse}
	case ModeKeyboard:
		return []Device{DeviceKeyboard}
	}
	return []Device{DeviceMouse, DeviceKeyboard}
}

func (m Mode) records(d Device) bool {
	for _, x := range m.Devices() {
		if x == d {
			return true
		}
	}
	return false
}

// Device is an input source class.
type Device uint8

const (
	DeviceMouse Device = iota + 1
	DeviceKeyboard
)

func (d Device) String() string {
	switch d {
	case DeviceMouse:
		return "mouse"
	case DeviceKeyboard:
		return "keyboard"
	}
	return fmt.Sprintf("device(%d)", uint8(d))
}

// Notification is one raw input observation, already decoded from the
// platform hook. Key holds the platform's key identifier; Button is zero
// for buttons that are not recorded.
type Notification struct {
	Kind    macro.Kind
	At      time.Time
	X, Y    int
	Button  macro.Button
	Pressed bool
	DX, DY  int
	Key     string
}

// Device reports which source produced n.
func (n Notification) Device() Device {
	if n.Kind.IsKey() {
		return DeviceKeyboard
	}
	return DeviceMouse
}

// Subscription is a live hook registration.
type Subscription interface {
	Unsubscribe() error
}

// Source installs global input hooks. Notifications for a subscribed device
// are delivered by the source's owner to Session.Handle.
type Source interface {
	Subscribe(d Device) (Subscription, error)
}

// Gate is consulted before every notification. *scope.Filter implements it.
type Gate interface {
	Allows() bool
}
