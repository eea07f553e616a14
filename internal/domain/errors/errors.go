package errors

import "errors"

// Sentinel errors. The exported message text is part of the API contract
// where handlers pass it through verbatim.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrTaskNotFound       = errors.New("Task not found")
	ErrFutureCompletion   = errors.New("Cannot mark future tasks as completed")
	ErrInternalServer     = errors.New("Server error")
	ErrBadRequest         = errors.New("invalid request body")

	ErrNoToken        = errors.New("No token provided, authorization denied")
	ErrMalformedToken = errors.New("Invalid token signature")
	ErrExpiredToken   = errors.New("Token has expired")
	ErrStaleUser      = errors.New("User not found, token is not valid")

	ErrMissingFields    = errors.New("All fields are required")
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters")
	ErrMissingLogin     = errors.New("Email and password are required")
	ErrMissingTaskData  = errors.New("Title and due date are required")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrInvalidDueDate   = errors.New("invalid due date format")
	ErrValidationFailed = errors.New("validation failed")

	ErrConfigFileReadFailed = errors.New("failed to read config file")
	ErrConfigParseFailed    = errors.New("failed to parse config file")
	ErrConfigInvalidFormat  = errors.New("invalid config value")
	ErrMissingJWTSecret     = errors.New("JWT secret is not configured")

	ErrInvalidGzipRequest    = errors.New("invalid gzip request body")
	ErrGzipCompressionFailed = errors.New("gzip compression failed")
)
