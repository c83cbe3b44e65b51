// Package remotemock contains testify mocks for the remote interfaces.
package remotemock

//go:generate mockery --case underscore --output . --outpkg remotemock --name API --srcpkg github.com/slok/tasksync/internal/remote --structname MockAPI
