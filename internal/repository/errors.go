package repository

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrBotNotFound    = errors.New("bot not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrAPIKeyExists   = errors.New("api key already exists")
	ErrStaleUpdate    = errors.New("engine update older than stored record")
)
