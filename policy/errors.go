package policy

import "errors"

// ErrUnknownPolicy indicates that New was given a name no built-in policy answers to.
var ErrUnknownPolicy = errors.New("unknown assignment policy")
