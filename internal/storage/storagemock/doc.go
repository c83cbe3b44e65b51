// Package storagemock contains testify mocks for the storage interfaces.
package storagemock

//go:generate mockery --case underscore --output . --outpkg storagemock --name KV --srcpkg github.com/slok/tasksync/internal/storage --structname MockKV
//go:generate mockery --case underscore --output . --outpkg storagemock --name OperationRepository --srcpkg github.com/slok/tasksync/internal/storage --structname MockOperationRepository
