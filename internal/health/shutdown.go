package health

import "sync/atomic"

var notReady atomic.Bool

// SetReady flips the readiness gate. Flipped off during shutdown so load
// balancers drain the instance before connections drop.
func SetReady(ready bool) {
	notReady.Store(!ready)
}
