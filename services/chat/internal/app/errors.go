package app

import "errors"

var (
	// ErrMissingFields is returned when registration input is incomplete.
	ErrMissingFields = errors.New("username, email and password are required")
	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("User already exists")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	// The message is shown to end users and must not reveal which of the two failed.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	// ErrUnauthenticated is returned when a request carries no bearer token.
	ErrUnauthenticated = errors.New("Access token required")
	// ErrForbidden is returned for a token that fails verification.
	ErrForbidden = errors.New("Invalid token")
	// ErrEmptyMessage is returned for a chat message that is blank after trimming.
	ErrEmptyMessage = errors.New("Message cannot be empty")
	// ErrPersistence wraps history store failures.
	ErrPersistence = errors.New("persistence failure")
)
