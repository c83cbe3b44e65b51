package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/tasksync/internal/model"
)

func TestMutationValidate(t *testing.T) {
	task := model.Task{ID: "local-1", Title: "Write docs", Status: model.TaskStatusTodo, Priority: model.TaskPriorityMedium}

	tests := map[string]struct {
		mutation model.Mutation
		expErr   bool
	}{
		"Create with a valid task should not fail": {
			mutation: model.Mutation{Kind: model.MutationCreate, Task: model.Task{Title: "x", Status: model.TaskStatusTodo, Priority: model.TaskPriorityLow}},
		},
		"Create with an invalid task should fail": {
			mutation: model.Mutation{Kind: model.MutationCreate, Task: model.Task{Status: model.TaskStatusTodo, Priority: model.TaskPriorityLow}},
			expErr:   true,
		},
		"Update without ID should fail": {
			mutation: model.Mutation{Kind: model.MutationUpdate, Task: model.Task{Title: "x", Status: model.TaskStatusTodo, Priority: model.TaskPriorityLow}},
			expErr:   true,
		},
		"Update with a valid task should not fail": {
			mutation: model.Mutation{Kind: model.MutationUpdate, Task: task},
		},
		"Status change only needs the ID and the status": {
			mutation: model.Mutation{Kind: model.MutationStatusChange, Task: model.Task{ServerID: "srv-1", Status: model.TaskStatusCompleted}},
		},
		"Status change with unknown status should fail": {
			mutation: model.Mutation{Kind: model.MutationStatusChange, Task: model.Task{ServerID: "srv-1", Status: "done"}},
			expErr:   true,
		},
		"Delete only needs the ID": {
			mutation: model.Mutation{Kind: model.MutationDelete, Task: model.Task{ID: "local-1"}},
		},
		"Delete without ID should fail": {
			mutation: model.Mutation{Kind: model.MutationDelete},
			expErr:   true,
		},
		"Unknown kind should fail": {
			mutation: model.Mutation{Kind: "archive", Task: task},
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.mutation.Validate()

			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotificationFailed(t *testing.T) {
	assert.True(t, model.Notification{Kind: model.NotificationError}.Failed())
	assert.False(t, model.Notification{Kind: model.NotificationSavedOffline}.Failed())
	assert.False(t, model.Notification{Kind: model.NotificationWarning}.Failed())
}
