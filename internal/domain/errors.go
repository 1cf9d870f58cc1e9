package domain

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrItemNotFound    = errors.New("item not found")
	ErrItemUnavailable = errors.New("item unavailable")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrTerminalState   = errors.New("order is in a terminal state")
	ErrPersistence     = errors.New("persistence failure")
	ErrNotFound        = errors.New("not found")
)
