package model

import "time"

// OperationStatus represents the replay state of a pending operation.
type OperationStatus string

const (
	OperationStatusPending OperationStatus = "pending"
	OperationStatusDone    OperationStatus = "done"
	OperationStatusFailed  OperationStatus = "failed"
)

// Operation is a mutation applied locally that still needs to reach the remote API.
type Operation struct {
	// ID is the client generated correlation ID.
	ID        string
	Sequence  int
	Kind      MutationKind
	TaskID    string
	Payload   Task
	Status    OperationStatus
	Error     string
	Attempts  int
	CreatedAt time.Time
}
