package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"taskplanner/internal/domain/errors"
	"taskplanner/internal/domain/models"
)

type Storage struct {
	conn               *pgx.Conn
	logger             *slog.Logger
	prepCreateUser     string
	prepGetUserByID    string
	prepGetUserByEmail string
	prepCreateTask     string
	prepGetTaskByID    string
	prepGetTasks       string
	prepGetOverdue     string
	prepUpdateTask     string
	prepDeleteTask     string
	deleteQueue        chan struct{}
}

const opTimeout = 15 * time.Second

func NewStorage(connStr string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	s := &Storage{
		conn:               conn,
		logger:             logger,
		prepCreateUser:     `INSERT INTO users (id, name, email, password, created_at) VALUES ($1, $2, $3, $4, $5)`,
		prepGetUserByID:    `SELECT id, name, email, password, created_at FROM users WHERE id = $1`,
		prepGetUserByEmail: `SELECT id, name, email, password, created_at FROM users WHERE email = $1`,
		prepCreateTask:     `INSERT INTO tasks (id, title, description, due_date, status, user_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		prepGetTaskByID:    `SELECT id, title, description, due_date, status, user_id, created_at, deleted FROM tasks WHERE id = $1 AND user_id = $2 AND deleted = false`,
		prepGetTasks:       `SELECT id, title, description, due_date, status, user_id, created_at FROM tasks WHERE user_id = $1 AND deleted = false ORDER BY due_date ASC, created_at DESC`,
		prepGetOverdue:     `SELECT id, title, description, due_date, status, user_id, created_at FROM tasks WHERE user_id = $1 AND deleted = false AND due_date < $2 AND status <> 'completed' ORDER BY due_date ASC`,
		prepUpdateTask:     `UPDATE tasks SET title = $1, description = $2, status = $3 WHERE id = $4 AND user_id = $5 AND deleted = false`,
		prepDeleteTask:     `UPDATE tasks SET deleted = true WHERE id = $1 AND user_id = $2 AND deleted = false`,
		deleteQueue:        make(chan struct{}, 10),
	}
	logger.Info("database connection established")
	return s, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	user.ID = uuid.New().String()
	stmt, err := s.conn.Prepare(ctx, "create_user", s.prepCreateUser)
	if err != nil {
		s.logger.Error("failed to prepare create_user", "error", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name, user.ID, user.Name, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		// The unique index on email is the enforcement point for
		// duplicate registrations.
		s.logger.Error("failed to create user", "error", err)
		return errors.ErrUserAlreadyExists
	}
	s.logger.Info("user created", "userID", user.ID)
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_id", s.prepGetUserByID)
	if err != nil {
		s.logger.Error("failed to prepare get_user_by_id", "error", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id)
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		s.logger.Error("failed to fetch user", "error", err)
		return nil, err
	}
	return user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_email", s.prepGetUserByEmail)
	if err != nil {
		s.logger.Error("failed to prepare get_user_by_email", "error", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, email)
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		s.logger.Error("failed to fetch user", "error", err)
		return nil, err
	}
	return user, nil
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	task.ID = uuid.New().String()
	task.Deleted = false
	stmt, err := s.conn.Prepare(ctx, "create_task", s.prepCreateTask)
	if err != nil {
		s.logger.Error("failed to prepare create_task", "error", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name, task.ID, task.Title, task.Description, task.DueDate, task.Status, task.UserID, task.CreatedAt)
	if err != nil {
		s.logger.Error("failed to create task", "error", err)
		return err
	}
	s.logger.Info("task created", "taskID", task.ID)
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id, userID string) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_task_by_id", s.prepGetTaskByID)
	if err != nil {
		s.logger.Error("failed to prepare get_task_by_id", "error", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id, userID)
	task := &models.Task{}
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &task.DueDate, &task.Status, &task.UserID, &task.CreatedAt, &task.Deleted); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrTaskNotFound
		}
		s.logger.Error("failed to fetch task", "error", err)
		return nil, err
	}
	return task, nil
}

func (s *Storage) GetTasks(ctx context.Context, userID string) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_tasks", s.prepGetTasks)
	if err != nil {
		s.logger.Error("failed to prepare get_tasks", "error", err)
		return nil, err
	}
	rows, err := s.conn.Query(ctx, stmt.Name, userID)
	if err != nil {
		s.logger.Error("failed to query tasks", "error", err)
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (s *Storage) GetOverdueTasks(ctx context.Context, userID string, before time.Time) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_overdue_tasks", s.prepGetOverdue)
	if err != nil {
		s.logger.Error("failed to prepare get_overdue_tasks", "error", err)
		return nil, err
	}
	rows, err := s.conn.Query(ctx, stmt.Name, userID, before)
	if err != nil {
		s.logger.Error("failed to query overdue tasks", "error", err)
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTasks(rows pgx.Rows) ([]models.Task, error) {
	tasks := []models.Task{}
	for rows.Next() {
		task := models.Task{}
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.DueDate, &task.Status, &task.UserID, &task.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Storage) UpdateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "update_task", s.prepUpdateTask)
	if err != nil {
		s.logger.Error("failed to prepare update_task", "error", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, task.Title, task.Description, task.Status, task.ID, task.UserID)
	if err != nil {
		s.logger.Error("failed to update task", "error", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

// DeleteTask flags the row; flagged rows are purged lazily in batches.
func (s *Storage) DeleteTask(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "delete_task_soft", s.prepDeleteTask)
	if err != nil {
		s.logger.Error("failed to prepare delete_task_soft", "error", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, id, userID)
	if err != nil {
		s.logger.Error("failed to flag task as deleted", "error", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrTaskNotFound
	}
	s.logger.Info("task flagged deleted", "taskID", id)
	s.tryEnqueueOrFlush()
	return nil
}

func (s *Storage) tryEnqueueOrFlush() {
	if s.deleteQueue == nil {
		return
	}
	select {
	case s.deleteQueue <- struct{}{}:
	default:
		s.drainDeleteQueue()
		if affected, err := s.hardDeleteAllFlagged(context.Background()); err != nil {
			s.logger.Error("failed to purge flagged tasks", "error", err)
		} else if affected > 0 {
			s.logger.Info("purged flagged tasks", "count", affected)
		}
	}
}

func (s *Storage) drainDeleteQueue() {
	for {
		select {
		case <-s.deleteQueue:
		default:
			return
		}
	}
}

func (s *Storage) hardDeleteAllFlagged(ctx context.Context) (int64, error) {
	c, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	tx, err := s.conn.Begin(c)
	if err != nil {
		return 0, err
	}
	ct, err := tx.Exec(c, `DELETE FROM tasks WHERE deleted = true`)
	if err != nil {
		_ = tx.Rollback(c)
		return 0, err
	}
	if err := tx.Commit(c); err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
