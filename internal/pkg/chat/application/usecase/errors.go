package usecase

import "fmt"

// ErrPersistence marks an infrastructure failure inside a use case. The
// consumer layer treats anything wrapping it as transient: the event stays
// unacknowledged and comes back around. Every other error is semantic and
// terminal for that one event.
var ErrPersistence = fmt.Errorf("chat use case persistence error")
