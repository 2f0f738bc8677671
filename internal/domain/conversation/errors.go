package conversation

import "errors"

// ErrInvalidInput indicates a malformed turn.
var ErrInvalidInput = errors.New("invalid conversation input")
