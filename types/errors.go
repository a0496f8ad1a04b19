package types

import "errors"

// ErrConfiguration marks malformed world, run or memory-table configuration.
// A run aborts before simulation starts when it is returned.
var ErrConfiguration = errors.New("configuration error")
