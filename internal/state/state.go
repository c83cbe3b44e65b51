// Package state has the observable application state consumed by the
// presentation layers.
package state

import (
	"sync"

	"github.com/slok/tasksync/internal/model"
)

// Snapshot is an immutable view of the state.
type Snapshot struct {
	Tasks    []model.Task
	Projects []model.Project
	Online   bool
	Loading  bool
	// Notification is the last user facing outcome, nil if none.
	Notification *model.Notification
	// Version increases on every change.
	Version uint64
}

// Store is an observable state store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// NewStore returns a new empty store.
func NewStore() *Store {
	return &Store{
		snap: Snapshot{Tasks: []model.Task{}, Projects: []model.Project{}},
		subs: map[int]chan Snapshot{},
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetData replaces tasks and projects in a single change.
func (s *Store) SetData(tasks []model.Task, projects []model.Project) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	if projects == nil {
		projects = []model.Project{}
	}

	s.update(func(snap *Snapshot) {
		snap.Tasks = append([]model.Task{}, tasks...)
		snap.Projects = append([]model.Project{}, projects...)
	})
}

// SetOnline sets the connectivity flag.
func (s *Store) SetOnline(online bool) {
	s.update(func(snap *Snapshot) { snap.Online = online })
}

// SetLoading sets the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.update(func(snap *Snapshot) { snap.Loading = loading })
}

// Notify sets the last notification.
func (s *Store) Notify(n model.Notification) {
	s.update(func(snap *Snapshot) { snap.Notification = &n })
}

// Subscribe returns a channel that receives the state after every change.
// Slow subscribers only get the latest state. The returned function
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) update(f func(snap *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f(&s.snap)
	s.snap.Version++
	for _, ch := range s.subs {
		publish(ch, s.snap)
	}
}

func publish(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}
