package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/auth"
	"taskplanner/internal/domain/models"
	"taskplanner/internal/server"
	inmemory "taskplanner/repository/inmemory"
)

// startServer runs the real API over in-memory storage so the client is
// exercised end to end.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := inmemory.NewStorage()
	cfg := &server.Config{Addr: "127.0.0.1", Port: 0}
	api := server.NewTaskAPI(cfg, store, store, auth.NewTokenManager("client-test-secret"), nil)
	require.NotNil(t, api)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestSignupLoginFlow(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	cli := New(srv.URL, NewSession())

	resp, err := cli.Signup(ctx, "Ann", "ann@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", resp.Message)
	assert.True(t, cli.Session().Authenticated())

	me, err := cli.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", me.Email)

	// A fresh client can log back in with the same credentials.
	cli2 := New(srv.URL, NewSession())
	login, err := cli2.Login(ctx, "ann@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = cli2.Login(ctx, "ann@x.com", "wrongpassword")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestTaskLifecycle(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	cli := New(srv.URL, NewSession())
	_, err := cli.Signup(ctx, "Ann", "ann@x.com", "longenough1")
	require.NoError(t, err)

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	past, err := cli.CreateTask(ctx, models.CreateTaskRequest{Title: "past", DueDate: yesterday})
	require.NoError(t, err)
	future, err := cli.CreateTask(ctx, models.CreateTaskRequest{Title: "future", DueDate: tomorrow})
	require.NoError(t, err)

	tasks, err := cli.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "past", tasks[0].Title)

	overdue, err := cli.OverdueTasks(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, past.ID, overdue[0].ID)

	// Completing the past-due task works, the future one is refused.
	completed := models.StatusCompleted
	updated, err := cli.UpdateTask(ctx, past.ID, models.UpdateTaskRequest{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	_, err = cli.UpdateTask(ctx, future.ID, models.UpdateTaskRequest{Status: &completed})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Cannot mark future tasks as completed", apiErr.Message)

	require.NoError(t, cli.DeleteTask(ctx, future.ID))
	tasks, err = cli.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestOwnerIsolation(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	alice := New(srv.URL, NewSession())
	_, err := alice.Signup(ctx, "Alice", "alice@x.com", "longenough1")
	require.NoError(t, err)

	bob := New(srv.URL, NewSession())
	_, err = bob.Signup(ctx, "Bob", "bob@x.com", "longenough1")
	require.NoError(t, err)

	task, err := alice.CreateTask(ctx, models.CreateTaskRequest{Title: "private", DueDate: "2030-01-01"})
	require.NoError(t, err)

	// Bob cannot see, change or delete Alice's task; every attempt looks
	// like the id simply does not exist.
	tasks, err := bob.Tasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	title := "stolen"
	_, err = bob.UpdateTask(ctx, task.ID, models.UpdateTaskRequest{Title: &title})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	err = bob.DeleteTask(ctx, task.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	got, err := alice.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "private", got[0].Title)
}

func TestSessionInvalidateOn401(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	session := NewSession()
	invalidated := false
	session.OnInvalidate(func() { invalidated = true })
	session.SetToken("stale-or-forged-token")

	cli := New(srv.URL, session)
	_, err := cli.Tasks(ctx)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, invalidated)
	assert.False(t, session.Authenticated())
}

func TestSessionIdentity(t *testing.T) {
	session := NewSession()
	assert.False(t, session.Authenticated())

	session.SetIdentity("tok", models.PublicUser{ID: "u1", Name: "Ann", Email: "ann@x.com"})
	assert.True(t, session.Authenticated())
	assert.Equal(t, "tok", session.Token())
	assert.Equal(t, "Ann", session.User().Name)

	session.Invalidate()
	assert.False(t, session.Authenticated())
	assert.Empty(t, session.User().ID)
}
