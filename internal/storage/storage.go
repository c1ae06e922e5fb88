package storage

import "errors"

var (
	ErrUserExists    = errors.New("user already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrQuoteNotFound = errors.New("quote not found")
	ErrRoleNotFound  = errors.New("role not found")
)
