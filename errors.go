package doublehash

import "fmt"

// invariantError is the panic value used when an internal invariant of the
// table is broken or the table cannot grow any further.
type invariantError struct {
	msg      string
	capacity int
}

func (e *invariantError) Error() string {
	return fmt.Sprintf("doublehash: %s (capacity %d)", e.msg, e.capacity)
}

func errDegenerateCapacity(capacity int) error {
	return &invariantError{msg: "capacity must be at least 2", capacity: capacity}
}

func errCapacityExhausted(capacity int) error {
	return &invariantError{msg: "table cannot grow past its maximum capacity", capacity: capacity}
}
