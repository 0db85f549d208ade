package auth

import "errors"

var (
	ErrInvalidToken           = errors.New("auth: invalid token")
	ErrExpiredToken           = errors.New("auth: token expired")
	ErrAuthenticationRequired = errors.New("auth: authentication required")
	ErrPermissionDenied       = errors.New("auth: permission denied")
	ErrInvalidCredentials     = errors.New("auth: invalid credentials")
	ErrNotFound               = errors.New("auth: not found")
	ErrInvalidInput           = errors.New("auth: invalid input")
	ErrConflict               = errors.New("auth: already exists")
)
