// Package inputhook owns the process-wide gohook event stream and fans it
// out to the capture engine and the hotkey matcher.
package inputhook

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"

	hook "github.com/robotn/gohook"
)

// ErrNoDisplay is returned on Linux when no display server is reachable.
var ErrNoDisplay = errors.New("no display server")

// Stream starts and stops the underlying hook.
type Stream interface {
	Start() (<-chan hook.Event, error)
	End()
}

// gohookStream is the real global hook.
type gohookStream struct{}

func (gohookStream) Start() (<-chan hook.Event, error) {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return nil, ErrNoDisplay
	}
	return hook.Start(), nil
}

func (gohookStream) End() { hook.End() }

// Handler receives hook events on the hub's goroutine. It must not block.
type Handler func(hook.Event)

// Hub shares one hook stream between subscribers. The stream runs while
// at least one subscriber is registered.
type Hub struct {
	stream Stream

	mu      sync.Mutex
	subs    map[uint64]Handler
	next    uint64
	stop    chan struct{}
	stopped chan struct{}
}

// NewHub returns a hub over the global gohook stream.
func NewHub() *Hub {
	return NewHubWithStream(gohookStream{})
}

// NewHubWithStream returns a hub over s.
func NewHubWithStream(s Stream) *Hub {
	return &Hub{stream: s, subs: make(map[uint64]Handler)}
}

// Subscribe registers fn and starts the stream if it is not running.
func (h *Hub) Subscribe(fn Handler) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop == nil {
		events, err := h.stream.Start()
		if err != nil {
			return nil, err
		}
		h.stop = make(chan struct{})
		h.stopped = make(chan struct{})
		go h.pump(events, h.stop, h.stopped)
		slog.Debug("input hook started")
	}

	h.next++
	id := h.next
	h.subs[id] = fn
	return &Subscription{hub: h, id: id}, nil
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	if _, ok := h.subs[id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, id)
	if len(h.subs) > 0 || h.stop == nil {
		h.mu.Unlock()
		return
	}
	stop, stopped := h.stop, h.stopped
	h.stop, h.stopped = nil, nil
	h.mu.Unlock()

	close(stop)
	h.stream.End()
	<-stopped
	slog.Debug("input hook stopped")
}

func (h *Hub) pump(events <-chan hook.Event, stop, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case <-stop:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			h.mu.Lock()
			handlers := make([]Handler, 0, len(h.subs))
			for _, fn := range h.subs {
				handlers = append(handlers, fn)
			}
			h.mu.Unlock()
			for _, fn := range handlers {
				fn(e)
			}
		}
	}
}

// Close removes all subscribers and stops the stream.
func (h *Hub) Close() {
	h.mu.Lock()
	ids := make([]uint64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.unsubscribe(id)
	}
}

// Subscription is a registered handler.
type Subscription struct {
	hub  *Hub
	id   uint64
	once sync.Once
}

// Unsubscribe removes the handler. Repeated calls are no-ops.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() { s.hub.unsubscribe(s.id) })
	return nil
}
