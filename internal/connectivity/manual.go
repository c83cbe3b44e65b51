package connectivity

import (
	"context"
	"sync"
)

// ManualSource is a source whose state is set programmatically.
type ManualSource struct {
	mu     sync.Mutex
	online bool
	events chan bool
}

// NewManualSource returns a new manual source with an initial state.
func NewManualSource(online bool) *ManualSource {
	return &ManualSource{
		online: online,
		events: make(chan bool, 16),
	}
}

// Online returns the current state.
func (s *ManualSource) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline changes the state and notifies the watcher.
func (s *ManualSource) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.online == online {
		return
	}
	s.online = online

	select {
	case s.events <- online:
	default:
		// Watcher not keeping up, it will read the state with Online.
	}
}

// Watch forwards the state changes until the context is done.
func (s *ManualSource) Watch(ctx context.Context, changes chan<- bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case online := <-s.events:
			select {
			case changes <- online:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
