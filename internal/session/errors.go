package session

import "errors"

var (
	ErrInvalidInput     = errors.New("session: invalid input")
	ErrInvalidToken     = errors.New("session: invalid token")
	ErrNotAuthenticated = errors.New("session: not authenticated")
)
