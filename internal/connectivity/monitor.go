package connectivity

import (
	"log/slog"
	"sync"
)

// Monitor holds the device's single online/offline signal. It is fed by
// platform push notifications (the app shell forwards its online/offline
// events) and starts out assuming the device is online. There is no probing
// or polling here.
type Monitor struct {
	mu       sync.Mutex
	online   bool
	handlers []func(online bool)
	logger   *slog.Logger
}

func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{
		online: true,
		logger: logger,
	}
}

// Online reports the current connectivity status.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers a handler invoked once per actual transition with the
// new status. Handlers run synchronously on the notifying goroutine; anything
// slow (like a sync drain) must hop to its own goroutine.
func (m *Monitor) OnChange(handler func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Set records a connectivity event from the platform. Repeated events with
// the same status are ignored, so subscribers fire exactly once per
// transition.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	handlers := make([]func(bool), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	m.logger.Info("Connectivity changed", "online", online)
	for _, h := range handlers {
		h(online)
	}
}
