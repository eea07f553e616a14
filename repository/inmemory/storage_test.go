package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/domain/errors"
	"taskplanner/internal/domain/models"
)

var ctx = context.Background()

func newUser(email string) *models.User {
	return &models.User{Name: "Ann", Email: email, Password: "hashed", CreatedAt: time.Now()}
}

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name  string
		email string
		setup func(*Storage)
		want  struct {
			err error
		}
	}{
		{
			name:  "create new user",
			email: "ann@x.com",
			want:  struct{ err error }{err: nil},
		},
		{
			name:  "duplicate email is rejected",
			email: "ann@x.com",
			setup: func(s *Storage) {
				require.NoError(t, s.CreateUser(ctx, newUser("ann@x.com")))
			},
			want: struct{ err error }{err: errors.ErrUserAlreadyExists},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStorage()
			if tt.setup != nil {
				tt.setup(s)
			}

			err := s.CreateUser(ctx, newUser(tt.email))
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	s := NewStorage()
	user := newUser("ann@x.com")
	require.NoError(t, s.CreateUser(ctx, user))
	require.NotEmpty(t, user.ID)

	byID, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", byID.Email)

	byEmail, err := s.GetUserByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)

	_, err = s.GetUserByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func seedTask(t *testing.T, s *Storage, userID string, due time.Time, createdAt time.Time, status string) models.Task {
	t.Helper()
	task := &models.Task{
		Title:     "task",
		DueDate:   due,
		Status:    status,
		UserID:    userID,
		CreatedAt: createdAt,
	}
	require.NoError(t, s.CreateTask(ctx, task))
	return *task
}

func TestGetTasksOrdering(t *testing.T) {
	s := NewStorage()
	now := time.Now()
	dueSoon := now.AddDate(0, 0, 1)
	dueLater := now.AddDate(0, 0, 5)

	older := seedTask(t, s, "u1", dueSoon, now.Add(-2*time.Hour), models.StatusPending)
	newer := seedTask(t, s, "u1", dueSoon, now.Add(-1*time.Hour), models.StatusPending)
	last := seedTask(t, s, "u1", dueLater, now.Add(-3*time.Hour), models.StatusPending)
	seedTask(t, s, "u2", dueSoon, now, models.StatusPending)

	tasks, err := s.GetTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	// Ascending due date; among equal due dates the newest creation first.
	assert.Equal(t, newer.ID, tasks[0].ID)
	assert.Equal(t, older.ID, tasks[1].ID)
	assert.Equal(t, last.ID, tasks[2].ID)
}

func TestGetOverdueTasks(t *testing.T) {
	s := NewStorage()
	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	overdueOld := seedTask(t, s, "u1", startOfToday.AddDate(0, 0, -7), now, models.StatusPending)
	overdueRecent := seedTask(t, s, "u1", startOfToday.AddDate(0, 0, -1), now, models.StatusPending)
	seedTask(t, s, "u1", startOfToday.AddDate(0, 0, -3), now, models.StatusCompleted)
	seedTask(t, s, "u1", startOfToday.Add(2*time.Hour), now, models.StatusPending)
	seedTask(t, s, "u2", startOfToday.AddDate(0, 0, -1), now, models.StatusPending)

	tasks, err := s.GetOverdueTasks(ctx, "u1", startOfToday)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, overdueOld.ID, tasks[0].ID)
	assert.Equal(t, overdueRecent.ID, tasks[1].ID)
}

func TestTaskOwnerScoping(t *testing.T) {
	s := NewStorage()
	task := seedTask(t, s, "owner", time.Now(), time.Now(), models.StatusPending)

	tests := []struct {
		name string
		op   func() error
		want struct {
			err error
		}
	}{
		{
			name: "get as another user",
			op: func() error {
				_, err := s.GetTaskByID(ctx, task.ID, "intruder")
				return err
			},
			want: struct{ err error }{err: errors.ErrTaskNotFound},
		},
		{
			name: "update as another user",
			op: func() error {
				stolen := task
				stolen.UserID = "intruder"
				stolen.Title = "mine now"
				return s.UpdateTask(ctx, &stolen)
			},
			want: struct{ err error }{err: errors.ErrTaskNotFound},
		},
		{
			name: "delete as another user",
			op: func() error {
				return s.DeleteTask(ctx, task.ID, "intruder")
			},
			want: struct{ err error }{err: errors.ErrTaskNotFound},
		},
		{
			name: "owner still sees the task afterwards",
			op: func() error {
				_, err := s.GetTaskByID(ctx, task.ID, "owner")
				return err
			},
			want: struct{ err error }{err: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	s := NewStorage()
	task := seedTask(t, s, "u1", time.Now(), time.Now(), models.StatusPending)

	task.Title = "renamed"
	task.Status = models.StatusCompleted
	require.NoError(t, s.UpdateTask(ctx, &task))

	got, err := s.GetTaskByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, models.StatusCompleted, got.Status)

	require.NoError(t, s.DeleteTask(ctx, task.ID, "u1"))
	_, err = s.GetTaskByID(ctx, task.ID, "u1")
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)

	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID, "u1"), errors.ErrTaskNotFound)
}
