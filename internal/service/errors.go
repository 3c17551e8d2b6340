package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("not allowed to modify this channel")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)
