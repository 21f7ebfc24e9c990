package trading

import "errors"

var (
	ErrInvalidRequest     = errors.New("trading: invalid request")
	ErrNotFound           = errors.New("trading: not found")
	ErrUserExists         = errors.New("trading: username already taken")
	ErrInvalidCredentials = errors.New("trading: invalid username or password")
	ErrInsufficientCash   = errors.New("trading: insufficient cash")
	ErrInsufficientShares = errors.New("trading: insufficient shares")
	ErrNoPrice            = errors.New("trading: no price available")
)
