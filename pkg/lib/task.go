package lib

import (
	"context"
	"fmt"

	"github.com/oklog/run"
)

// FetchData loads the tasks and projects, from the remote API when online
// and from the local store otherwise, and returns the resulting state.
//
// It never fails: when the remote API can't be reached the cached data is
// returned and the state notification has a warning.
func (c *Client) FetchData(ctx context.Context) State {
	_ = c.refresh.Refresh(ctx)
	return c.State()
}

// SubmitMutation applies a task mutation and returns its outcome.
//
// Online the mutation is sent to the remote API. Offline, or if the remote
// API fails, it's applied on the local store and recorded to be synced later,
// the outcome is then [NotificationSavedOffline]. Only invalid mutations and
// local store failures return [NotificationError].
func (c *Client) SubmitMutation(ctx context.Context, m Mutation) Notification {
	n := c.mutate.Submit(ctx, toInternalMutation(m))
	return fromInternalNotification(n)
}

// State returns the current state.
func (c *Client) State() State {
	return fromInternalState(c.store.Snapshot())
}

// Subscribe returns a channel that receives the state on every change. Slow
// readers only get the latest state. Call the returned function to
// unsubscribe.
func (c *Client) Subscribe() (<-chan State, func()) {
	in, unsubscribe := c.store.Subscribe()

	out := make(chan State, 1)
	go func() {
		defer close(out)
		for s := range in {
			st := fromInternalState(s)
			select {
			case out <- st:
			default:
				select {
				case <-out:
				default:
				}
				out <- st
			}
		}
	}()

	return out, unsubscribe
}

// Online returns the current connectivity state.
func (c *Client) Online() bool {
	return c.monitor.Online()
}

// SetOnline changes the connectivity state. Only clients without an
// external connectivity source (offline flag file or platform) support it.
func (c *Client) SetOnline(online bool) error {
	if c.manual == nil {
		return fmt.Errorf("connectivity is managed by an external source: %w", ErrNotValid)
	}

	c.manual.SetOnline(online)
	c.monitor.Sync()
	c.store.SetOnline(c.monitor.Online())
	return nil
}

// Sync sends the pending operations to the remote API and refreshes the data.
func (c *Client) Sync(ctx context.Context) (SyncResult, error) {
	res, err := c.replay.Replay(ctx)
	if err != nil {
		return fromInternalSyncResult(res), mapError(fmt.Errorf("could not sync: %w", err))
	}

	// Replay only refreshes when something changed.
	if res.Synced+res.Dropped == 0 {
		_ = c.refresh.Refresh(ctx)
	}

	return fromInternalSyncResult(res), nil
}

// PendingOperations returns the local changes not synced yet, including the
// ones that failed.
func (c *Client) PendingOperations(ctx context.Context) ([]Operation, error) {
	ops, err := c.ops.ListOperations(ctx)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not list operations: %w", err))
	}
	return fromInternalOperationList(ops), nil
}

// Run watches the connectivity and syncs the pending operations every time
// the client gets online. It blocks until the context is cancelled.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before running the monitor so no transition is missed.
	transitions, unsubscribeReplay := c.monitor.Subscribe()
	defer unsubscribeReplay()
	mirror, unsubscribeMirror := c.monitor.Subscribe()
	defer unsubscribeMirror()

	var g run.Group

	// Connectivity monitor.
	{
		g.Add(
			func() error { return c.monitor.Run(ctx) },
			func(_ error) { cancel() },
		)
	}

	// State connectivity mirror.
	{
		g.Add(
			func() error {
				c.store.SetOnline(c.monitor.Online())
				for online := range mirror {
					c.store.SetOnline(online)
				}
				return nil
			},
			func(_ error) { cancel() },
		)
	}

	// Pending operations replay.
	{
		g.Add(
			func() error { return c.replay.Run(ctx, transitions) },
			func(_ error) { cancel() },
		)
	}

	if err := g.Run(); err != nil {
		return fmt.Errorf("client run failed: %w", err)
	}
	return nil
}
