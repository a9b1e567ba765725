package tasks_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	tasks "github.com/goliatone/go-tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tasksData struct {
	Count int           `json:"count"`
	Tasks []*tasks.Task `json:"tasks"`
}

func (e *testEnv) defaultListID(t *testing.T, token string) string {
	t.Helper()
	data := e.listTaskLists(t, token)
	require.NotEmpty(t, data.Lists)
	return data.Lists[0].ID.String()
}

func (e *testEnv) createTask(t *testing.T, token string, payload fiber.Map) tasks.Task {
	t.Helper()
	res, body := e.request(t, fiber.MethodPost, "/api/tasks", token, payload)
	require.Equal(t, fiber.StatusCreated, res.StatusCode, "error: %s", body.Error)

	var task tasks.Task
	require.NoError(t, json.Unmarshal(body.Data, &task))
	return task
}

func (e *testEnv) listTasks(t *testing.T, token, query string) tasksData {
	t.Helper()
	res, body := e.request(t, fiber.MethodGet, "/api/tasks"+query, token, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var data tasksData
	require.NoError(t, json.Unmarshal(body.Data, &data))
	return data
}

func TestTaskCreate(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "alice@example.com", "Password1")
	token := env.login(t, "alice@example.com", "Password1")
	listID := env.defaultListID(t, token)

	task := env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Buy milk",
		"notes":        "2 liters",
		"priority":     "high",
		"due_date":     "2026-09-15",
	})

	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, tasks.TaskStatusPending, task.Status)
	assert.Equal(t, tasks.TaskPriorityHigh, task.Priority)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, 15, task.DueDate.Day())

	// Priority defaults to medium when omitted.
	task = env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Defaults",
	})
	assert.Equal(t, tasks.TaskPriorityMedium, task.Priority)
}

func TestTaskCreateValidation(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "bob@example.com", "Password1")
	token := env.login(t, "bob@example.com", "Password1")
	listID := env.defaultListID(t, token)

	tests := []struct {
		name    string
		payload fiber.Map
	}{
		{"missing title", fiber.Map{"task_list_id": listID}},
		{"missing list", fiber.Map{"title": "orphan"}},
		{"bad priority", fiber.Map{"task_list_id": listID, "title": "x", "priority": "urgent"}},
		{"bad due date", fiber.Map{"task_list_id": listID, "title": "x", "due_date": "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := env.request(t, fiber.MethodPost, "/api/tasks", token, tt.payload)
			assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
			assert.False(t, body.Success)
		})
	}
}

func TestTaskCreateRejectsForeignList(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "owner@example.com", "Password1")
	env.registerAndVerify(t, "intruder@example.com", "Password1")

	ownerToken := env.login(t, "owner@example.com", "Password1")
	intruderToken := env.login(t, "intruder@example.com", "Password1")

	ownerList := env.defaultListID(t, ownerToken)

	res, _ := env.request(t, fiber.MethodPost, "/api/tasks", intruderToken, fiber.Map{
		"task_list_id": ownerList,
		"title":        "Sneaky",
	})
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestTaskListFilters(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "carol@example.com", "Password1")
	token := env.login(t, "carol@example.com", "Password1")
	listID := env.defaultListID(t, token)

	early := env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Early",
		"due_date":     "2026-09-01",
	})
	late := env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Late",
		"due_date":     "2026-10-01",
	})

	done := env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Done",
	})
	res, _ := env.request(t, fiber.MethodPut, "/api/tasks/"+done.ID.String(), token, fiber.Map{
		"status": "completed",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	all := env.listTasks(t, token, "")
	assert.Equal(t, 3, all.Count)

	pending := env.listTasks(t, token, "?status=pending")
	assert.Equal(t, 2, pending.Count)

	completed := env.listTasks(t, token, "?status=completed")
	require.Equal(t, 1, completed.Count)
	assert.Equal(t, "Done", completed.Tasks[0].Title)

	windowed := env.listTasks(t, token, "?start_date=2026-08-25&end_date=2026-09-10")
	require.Equal(t, 1, windowed.Count)
	assert.Equal(t, early.ID, windowed.Tasks[0].ID)

	// Results come back ordered by due date.
	both := env.listTasks(t, token, "?start_date=2026-08-01&end_date=2026-12-31")
	require.Equal(t, 2, both.Count)
	assert.Equal(t, early.ID, both.Tasks[0].ID)
	assert.Equal(t, late.ID, both.Tasks[1].ID)

	res, _ = env.request(t, fiber.MethodGet, "/api/tasks?status=bogus", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestTaskArchiveHiddenByDefault(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "dan@example.com", "Password1")
	token := env.login(t, "dan@example.com", "Password1")
	listID := env.defaultListID(t, token)

	task := env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Old news",
	})

	res, _ := env.request(t, fiber.MethodPut, "/api/tasks/"+task.ID.String(), token, fiber.Map{
		"is_archived": true,
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	assert.Equal(t, 0, env.listTasks(t, token, "").Count)
	assert.Equal(t, 1, env.listTasks(t, token, "?include_archived=true").Count)
}

func TestTaskCompletionStampsTimestamp(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "erin@example.com", "Password1")
	token := env.login(t, "erin@example.com", "Password1")
	listID := env.defaultListID(t, token)

	task := env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Finish this",
	})
	assert.Nil(t, task.CompletedAt)

	res, body := env.request(t, fiber.MethodPut, "/api/tasks/"+task.ID.String(), token, fiber.Map{
		"status": "completed",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var completed tasks.Task
	require.NoError(t, json.Unmarshal(body.Data, &completed))
	assert.Equal(t, tasks.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.WithinDuration(t, time.Now(), *completed.CompletedAt, time.Minute)

	// Flipping back clears the stamp.
	res, body = env.request(t, fiber.MethodPut, "/api/tasks/"+task.ID.String(), token, fiber.Map{
		"status": "pending",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var reopened tasks.Task
	require.NoError(t, json.Unmarshal(body.Data, &reopened))
	assert.Equal(t, tasks.TaskStatusPending, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)
}

func TestTaskDelete(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "frank@example.com", "Password1")
	token := env.login(t, "frank@example.com", "Password1")
	listID := env.defaultListID(t, token)

	task := env.createTask(t, token, fiber.Map{
		"task_list_id": listID,
		"title":        "Ephemeral",
	})

	res, _ := env.request(t, fiber.MethodDelete, "/api/tasks/"+task.ID.String(), token, nil)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	res, _ = env.request(t, fiber.MethodDelete, "/api/tasks/"+task.ID.String(), token, nil)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestTaskOwnershipIsolation(t *testing.T) {
	env := setupApp(t)
	env.registerAndVerify(t, "owner2@example.com", "Password1")
	env.registerAndVerify(t, "intruder2@example.com", "Password1")

	ownerToken := env.login(t, "owner2@example.com", "Password1")
	intruderToken := env.login(t, "intruder2@example.com", "Password1")

	listID := env.defaultListID(t, ownerToken)
	task := env.createTask(t, ownerToken, fiber.Map{
		"task_list_id": listID,
		"title":        "Private",
	})

	res, _ := env.request(t, fiber.MethodPut, "/api/tasks/"+task.ID.String(), intruderToken, fiber.Map{
		"title": "Stolen",
	})
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	assert.Equal(t, 0, env.listTasks(t, intruderToken, "").Count)
	assert.Equal(t, 1, env.listTasks(t, ownerToken, "").Count)
}
