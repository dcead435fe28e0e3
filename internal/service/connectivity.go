package service

import (
	"log"
	"sync"
	"time"
)

// Prober answers one question: is the remote store reachable right now.
type Prober interface {
	Probe() bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func() bool

// Probe implements Prober.
func (f ProberFunc) Probe() bool { return f() }

// ConnectivityMonitor polls a Prober and fires a callback on every
// offline-to-online transition, the primary trigger for resuming the sync
// drain. Transport errors can short-circuit the poll via SetOnline.
type ConnectivityMonitor struct {
	prober   Prober
	interval time.Duration
	onOnline func()

	mu     sync.Mutex
	online bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewConnectivityMonitor creates a monitor; onOnline may be nil.
func NewConnectivityMonitor(prober Prober, interval time.Duration, onOnline func()) *ConnectivityMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ConnectivityMonitor{
		prober:   prober,
		interval: interval,
		onOnline: onOnline,
		online:   true, // assume online until a probe says otherwise
		stop:     make(chan struct{}),
	}
}

// Online reports the last known connectivity state.
func (m *ConnectivityMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline overrides the state from observed transport results: a failed
// remote write flips the system offline immediately instead of waiting for
// the next probe; a succeeding one flips it back.
func (m *ConnectivityMonitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	if online && !wasOnline {
		log.Printf("[Connectivity] Back online")
		if m.onOnline != nil {
			m.onOnline()
		}
	}
	if !online && wasOnline {
		log.Printf("[Connectivity] Went offline")
	}
}

// Start polls until Stop is called.
func (m *ConnectivityMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.SetOnline(m.prober.Probe())
			}
		}
	}()
}

// Stop terminates the polling loop.
func (m *ConnectivityMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}
