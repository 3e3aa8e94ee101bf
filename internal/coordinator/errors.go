package coordinator

import "errors"

// ErrNoBroker — Coordinator создан без брокера.
var ErrNoBroker = errors.New("coordinator: broker is nil")
