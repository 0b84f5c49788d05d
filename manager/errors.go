package manager

import "errors"

var (
	ErrMissingEntity  = errors.New("manager: entity is not registered")
	ErrInvalidOptions = errors.New("manager: invalid options")
	ErrNilIndex       = errors.New("manager: nil object index")
)
