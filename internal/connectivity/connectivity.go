// Package connectivity tracks whether the network can be reached right now.
//
// The state is taken from a platform signal (a Source) and never probed, a
// false "online" report is expected to be handled by the callers when the
// network request fails.
package connectivity

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/tasksync/internal/log"
)

// Source is a platform connectivity signal.
type Source interface {
	// Online returns the state currently reported by the platform.
	Online() bool
	// Watch sends the online state on every platform transition until the
	// context is done.
	Watch(ctx context.Context, changes chan<- bool) error
}

// MonitorConfig is the configuration for the connectivity monitor.
type MonitorConfig struct {
	Source Source
	Logger log.Logger
}

func (c *MonitorConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("source is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "connectivity.Monitor"})
	return nil
}

// Monitor is the single source of truth of the connectivity state.
// It is safe for concurrent use.
type Monitor struct {
	source Source
	logger log.Logger

	mu     sync.RWMutex
	online bool
	subs   map[int]chan bool
	nextID int
}

// NewMonitor returns a new monitor initialized with the source reported state.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Monitor{
		source: cfg.Source,
		logger: cfg.Logger,
		online: cfg.Source.Online(),
		subs:   map[int]chan bool{},
	}, nil
}

// Online returns the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Sync reads the source state right away, without waiting for the source
// to report the transition.
func (m *Monitor) Sync() {
	m.set(m.source.Online())
}

// Subscribe returns a channel that receives the new state on every
// transition. Slow subscribers only get the latest state. The returned
// function unsubscribes, the channel is closed when unsubscribing or when
// a running monitor stops. Subscriptions made while stopped are served by
// the next run.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	id := m.nextID
	m.nextID++
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
}

// Run listens to the source transitions until the context is done. On
// return every subscription is released. It can run again once stopped.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.closeSubscriptions()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes := make(chan bool)
	errC := make(chan error, 1)
	go func() {
		errC <- m.source.Watch(ctx, changes)
	}()

	// The source could have changed between creation and run.
	m.Sync()

	for {
		select {
		case <-ctx.Done():
			return nil
		case online := <-changes:
			m.set(online)
		case err := <-errC:
			if err != nil {
				return fmt.Errorf("connectivity source failed: %w", err)
			}
			return nil
		}
	}
}

func (m *Monitor) set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return
	}
	m.online = online

	if online {
		m.logger.Infof("Network is online")
	} else {
		m.logger.Warningf("Network is offline")
	}

	for _, ch := range m.subs {
		publish(ch, online)
	}
}

// publish sends v replacing any value not consumed yet.
func publish(ch chan bool, v bool) {
	select {
	case ch <- v:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- v:
	default:
	}
}

func (m *Monitor) closeSubscriptions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
}
