package inputhook

import (
	"fmt"
	"log/slog"

	hook "github.com/robotn/gohook"

	"go.aimuz.me/supermacro/capture"
	"go.aimuz.me/supermacro/hotkey"
	"go.aimuz.me/supermacro/keys"
)

// Source feeds capture notifications from a Hub. Post is called on the
// hub goroutine and must not block.
type Source struct {
	Hub  *Hub
	Post func(capture.Notification)
}

// Subscribe implements capture.Source.
func (s *Source) Subscribe(d capture.Device) (capture.Subscription, error) {
	sub, err := s.Hub.Subscribe(func(e hook.Event) {
		n, ok := Notification(e)
		if !ok || n.Device() != d {
			return
		}
		s.Post(n)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", d, err)
	}
	return sub, nil
}

// Hotkeys installs hotkey matchers on a Hub.
type Hotkeys struct {
	Hub *Hub
}

// Install implements hotkey.Installer. The matcher runs on the hub
// goroutine; fn receives every activation edge.
func (h *Hotkeys) Install(b hotkey.Bindings, fn func(hotkey.Activation)) (hotkey.Registration, error) {
	m := hotkey.NewMatcher(b)
	sub, err := h.Hub.Subscribe(func(e hook.Event) {
		if e.Kind != kindKeyPress && e.Kind != kindKeyRelease {
			return
		}
		k, err := keys.Parse(KeyName(e))
		if err != nil {
			slog.Debug("hotkey: unmapped key", "rawcode", e.Rawcode)
			return
		}
		var acts []hotkey.Activation
		if e.Kind == kindKeyPress {
			acts = m.KeyDown(k)
		} else {
			acts = m.KeyUp(k)
		}
		for _, a := range acts {
			fn(a)
		}
	})
	if err != nil {
		return nil, err
	}
	return registration{sub}, nil
}

type registration struct{ sub *Subscription }

func (r registration) Unregister() error { return r.sub.Unsubscribe() }
