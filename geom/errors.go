package geom

import "errors"

var (
	ErrNumericInstability = errors.New("geom: NaN or Inf in query input")
)
