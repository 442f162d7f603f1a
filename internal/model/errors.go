package model

import (
	"errors"
	"fmt"
)

var (
	ErrPrematureMark = errors.New("model: prayer time has not been reached")
	ErrFutureDate    = errors.New("model: date is in the future")
	ErrUnavailable   = errors.New("model: prayer times unavailable")
)

type TransportError struct {
	EventID string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.EventID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
