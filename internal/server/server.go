package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"

	"golang.org/x/crypto/bcrypt"

	"taskplanner/internal/auth"
	"taskplanner/internal/domain/errors"
	"taskplanner/internal/domain/models"
	"taskplanner/internal/schedule"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTasks(ctx context.Context, userID string) ([]models.Task, error)
	GetOverdueTasks(ctx context.Context, userID string, before time.Time) ([]models.Task, error)
	GetTaskByID(ctx context.Context, id, userID string) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id, userID string) error
}

type TaskAPI struct {
	httpSrv   *http.Server
	users     UserRepository
	tasks     TaskRepository
	tokens    *auth.TokenManager
	logger    *slog.Logger
	valid     *validator.Validate
	staticDir string
}

func NewTaskAPI(cfg *Config, users UserRepository, tasks TaskRepository, tokens *auth.TokenManager, logger *slog.Logger) *TaskAPI {
	if users == nil || tasks == nil || tokens == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	api := &TaskAPI{
		httpSrv: &http.Server{
			Addr: fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port),
		},
		users:     users,
		tasks:     tasks,
		tokens:    tokens,
		logger:    logger,
		valid:     validator.New(),
		staticDir: cfg.StaticDir,
	}

	api.configRoutes()

	return api
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}
	return api.httpSrv.ListenAndServe()
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	return api.httpSrv.Shutdown(ctx)
}

// Handler exposes the configured router, mainly for tests.
func (api *TaskAPI) Handler() http.Handler {
	return api.httpSrv.Handler
}

func (api *TaskAPI) configRoutes() {
	router := gin.New()
	router.Use(gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		api.logger.Error("panic in handler", "path", ctx.Request.URL.Path, "panic", recovered)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
	}))
	router.Use(RequestLogger(api.logger))
	router.Use(GzipRequestDecompress())
	router.Use(GzipResponseCompress())

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	apiGroup := router.Group("/api")

	apiGroup.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/signup", api.signup)
		authGroup.POST("/login", api.login)
		authGroup.GET("/me", api.AuthRequired(), api.me)
	}

	tasks := apiGroup.Group("/tasks")
	tasks.Use(api.AuthRequired())
	{
		tasks.POST("", api.createTask)
		tasks.GET("", api.listTasks)
		tasks.GET("/overdue", api.listOverdueTasks)
		tasks.PATCH("/:taskID", api.updateTask)
		tasks.DELETE("/:taskID", api.deleteTask)
	}

	api.mountStatic(router)

	api.httpSrv.Handler = router
}

func (api *TaskAPI) signup(ctx *gin.Context) {
	var req models.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrMissingFields.Error()})
		return
	}
	if len(req.Password) < 8 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrPasswordTooShort.Error()})
		return
	}
	if err := api.valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	if existing, _ := api.users.GetUserByEmail(ctx.Request.Context(), req.Email); existing != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrUserAlreadyExists.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.internalError(ctx, "hash password", err)
		return
	}

	user := models.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hash),
		CreatedAt: time.Now(),
	}
	if err := api.users.CreateUser(ctx.Request.Context(), &user); err != nil {
		if err == errors.ErrUserAlreadyExists {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrUserAlreadyExists.Error()})
			return
		}
		api.internalError(ctx, "create user", err)
		return
	}

	token, err := api.tokens.Issue(user.ID, user.Email)
	if err != nil {
		api.internalError(ctx, "issue token", err)
		return
	}

	api.logger.Info("user created", "userID", user.ID)
	ctx.JSON(http.StatusCreated, models.AuthResponse{
		Message: "User created successfully",
		Token:   token,
		User:    user.Public(),
	})
}

func (api *TaskAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	if req.Email == "" || req.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrMissingLogin.Error()})
		return
	}

	// The unknown-email and wrong-password paths must be indistinguishable.
	user, err := api.users.GetUserByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}

	token, err := api.tokens.Issue(user.ID, user.Email)
	if err != nil {
		api.internalError(ctx, "issue token", err)
		return
	}

	ctx.JSON(http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    user.Public(),
	})
}

func (api *TaskAPI) me(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNoToken.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

func (api *TaskAPI) createTask(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNoToken.Error()})
		return
	}

	var req models.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	if req.Title == "" || req.DueDate == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrMissingTaskData.Error()})
		return
	}
	if err := api.valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidDueDate.Error()})
		return
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		Status:      models.StatusPending,
		UserID:      user.ID,
		CreatedAt:   time.Now(),
	}
	if err := api.tasks.CreateTask(ctx.Request.Context(), &task); err != nil {
		api.internalError(ctx, "create task", err)
		return
	}

	api.logger.Info("task created", "taskID", task.ID, "userID", user.ID)
	ctx.JSON(http.StatusCreated, gin.H{"message": "Task created successfully", "task": task})
}

func (api *TaskAPI) listTasks(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNoToken.Error()})
		return
	}

	tasks, err := api.tasks.GetTasks(ctx.Request.Context(), user.ID)
	if err != nil {
		api.internalError(ctx, "list tasks", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (api *TaskAPI) listOverdueTasks(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNoToken.Error()})
		return
	}

	startOfToday := schedule.StartOfDay(time.Now())
	tasks, err := api.tasks.GetOverdueTasks(ctx.Request.Context(), user.ID, startOfToday)
	if err != nil {
		api.internalError(ctx, "list overdue tasks", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNoToken.Error()})
		return
	}

	id := ctx.Param("taskID")
	var req models.UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}
	if err := api.valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	task, err := api.tasks.GetTaskByID(ctx.Request.Context(), id, user.ID)
	if err != nil {
		if err == errors.ErrTaskNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrTaskNotFound.Error()})
			return
		}
		api.internalError(ctx, "load task", err)
		return
	}

	// Completion guard: a task due after the end of today cannot be marked
	// completed, and the request must leave it untouched.
	if req.Status != nil && *req.Status == models.StatusCompleted {
		if !schedule.CanComplete(task.DueDate, time.Now()) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrFutureCompletion.Error()})
			return
		}
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	if err := api.tasks.UpdateTask(ctx.Request.Context(), task); err != nil {
		if err == errors.ErrTaskNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrTaskNotFound.Error()})
			return
		}
		api.internalError(ctx, "update task", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task updated successfully", "task": task})
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNoToken.Error()})
		return
	}

	id := ctx.Param("taskID")
	if err := api.tasks.DeleteTask(ctx.Request.Context(), id, user.ID); err != nil {
		if err == errors.ErrTaskNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrTaskNotFound.Error()})
			return
		}
		api.internalError(ctx, "delete task", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (api *TaskAPI) internalError(ctx *gin.Context, op string, err error) {
	api.logger.Error("internal error", "op", op, "error", err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
}

// parseDueDate accepts the two wire formats clients send: RFC 3339
// timestamps and bare calendar dates.
func parseDueDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}

func validationErrorToErrorResponse(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Email":
				return errors.ErrInvalidEmail
			case "Password":
				return errors.ErrPasswordTooShort
			case "Status":
				return errors.ErrInvalidStatus
			case "Title", "DueDate":
				return errors.ErrMissingTaskData
			case "Name":
				return errors.ErrMissingFields
			}
		}
	}
	return errors.ErrValidationFailed
}
