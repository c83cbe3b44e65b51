package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasksync/internal/model"
)

func TestTaskValidate(t *testing.T) {
	valid := func() model.Task {
		return model.Task{Title: "Write docs", Status: model.TaskStatusTodo, Priority: model.TaskPriorityLow}
	}

	tests := map[string]struct {
		task   func() model.Task
		expErr bool
	}{
		"A valid task should not fail": {
			task: valid,
		},
		"Blank title should fail": {
			task: func() model.Task {
				t := valid()
				t.Title = "   "
				return t
			},
			expErr: true,
		},
		"Unknown status should fail": {
			task: func() model.Task {
				t := valid()
				t.Status = "done"
				return t
			},
			expErr: true,
		},
		"Unknown priority should fail": {
			task: func() model.Task {
				t := valid()
				t.Priority = "critical"
				return t
			},
			expErr: true,
		},
		"Negative hours should fail": {
			task: func() model.Task {
				t := valid()
				t.ActualHours = -1
				return t
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.task().Validate()

			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskDefaults(t *testing.T) {
	task := model.Task{Title: "x"}
	task.Defaults()
	assert.Equal(t, model.TaskStatusTodo, task.Status)
	assert.Equal(t, model.TaskPriorityMedium, task.Priority)

	task = model.Task{Title: "x", Status: model.TaskStatusBlocked, Priority: model.TaskPriorityUrgent}
	task.Defaults()
	assert.Equal(t, model.TaskStatusBlocked, task.Status)
	assert.Equal(t, model.TaskPriorityUrgent, task.Priority)
}

func TestTaskIdentity(t *testing.T) {
	tests := map[string]struct {
		task         model.Task
		expKey       string
		expLocalOnly bool
	}{
		"Server ID should have preference": {
			task:   model.Task{ID: "local-1", ServerID: "srv-1"},
			expKey: "srv-1",
		},
		"Local task should use its local ID": {
			task:         model.Task{ID: "local-1"},
			expKey:       "local-1",
			expLocalOnly: true,
		},
		"Task without local prefix is not local only": {
			task:   model.Task{ID: "abc"},
			expKey: "abc",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expKey, test.task.Key())
			assert.Equal(t, test.expLocalOnly, test.task.IsLocalOnly())
			assert.True(t, test.task.HasID(test.expKey))
			assert.False(t, test.task.HasID(""))
		})
	}
}

func TestTaskJSON(t *testing.T) {
	task := model.Task{
		ServerID: "srv-1",
		Title:    "Write docs",
		Status:   model.TaskStatusInReview,
		Priority: model.TaskPriorityHigh,
		Project:  model.ProjectRef{ID: "p1", Name: "Website"},
		IsSynced: true,
	}

	data, err := json.Marshal(task)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "srv-1", got["_id"])
	assert.Equal(t, "in_review", got["status"])
	assert.Equal(t, map[string]any{"id": "p1", "name": "Website"}, got["project"])
	assert.Equal(t, true, got["isSynced"])
	assert.NotContains(t, got, "id")
	assert.NotContains(t, got, "dueDate")
	assert.NotContains(t, got, "createdAt")
}
