package stream

import (
	"errors"
)

var (
	ErrCameraUnavailable = errors.New("could not open camera")
)
