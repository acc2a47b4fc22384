package record

import "errors"

// ErrNotFound indicates the key is absent from every tier that was consulted.
var ErrNotFound = errors.New("record not found")
