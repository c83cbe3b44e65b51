// Package lib provides a Go SDK for the tasksync local-first task client.
//
// Task changes made through a [Client] succeed even when the remote Task API
// can't be reached: they are applied on a local store and recorded as pending
// operations that are sent to the remote API when the connectivity returns.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{
//	    APIURL: "https://app.example.com/api",
//	    Token:  os.Getenv("TASKSYNC_TOKEN"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	state := client.FetchData(ctx)
//	fmt.Printf("%d tasks\n", len(state.Tasks))
//
//	n := client.SubmitMutation(ctx, lib.Mutation{
//	    Kind: lib.MutationCreate,
//	    Task: lib.Task{Title: "Restock shelves", Priority: lib.TaskPriorityHigh},
//	})
//	if n.Failed() {
//	    log.Fatal(n.Err)
//	}
//
// # Outcomes
//
// Mutations don't return errors, they return a [Notification]:
//
//   - [NotificationSuccess]: the remote API accepted the change.
//   - [NotificationSavedOffline]: the change was stored locally and will be
//     synced later (offline, or the remote API failed).
//   - [NotificationError]: the mutation was invalid or the local store failed.
//
// [Client.FetchData] never fails either, when the remote API fails the cached
// data is used and the state notification is a [NotificationWarning].
//
// # Connectivity
//
// By default the network is considered reachable and the state can be
// changed with [Client.SetOnline]. [Config].OfflineFlagFile and
// [Config].PlatformConnectivity use external signals instead. The
// connectivity is trusted, never probed.
//
// # Syncing
//
// [Client.Run] watches the connectivity and replays the pending operations
// every time the client gets online. [Client.Sync] does the same on demand.
// Operations are sent in the order they were made, a rejected operation
// stops the sync so later ones are never applied before it.
//
// # Observing the state
//
// [Client.Subscribe] streams the [State] (tasks, projects, connectivity and
// last notification) on every change:
//
//	states, unsubscribe := client.Subscribe()
//	defer unsubscribe()
//	for s := range states {
//	    render(s)
//	}
//
// # Testing
//
// Use [StorageMemory] to keep the local store in memory:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    APIURL:  srv.URL,
//	    Storage: lib.StorageMemory,
//	})
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. Concurrent
// mutations on the same task are not ordered, the last one to land wins.
package lib
