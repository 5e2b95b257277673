// Package network brings the wireless link up for the few seconds a full
// refresh needs it, and keeps the wall clock honest.
package network

import (
	"context"
	"time"
)

// Link is the network connection used for the status fetch.
type Link interface {
	// Up powers the radio and waits for the interface to come up. It
	// returns false when the link is not usable before ctx ends.
	Up(ctx context.Context) bool

	// Down powers the radio off.
	Down()

	// Connected reports whether the last Up succeeded and Down has not
	// been called since.
	Connected() bool

	// Name is the interface name, for status output.
	Name() string
}

// Clock is the real-time clock.
type Clock interface {
	Now() time.Time

	// Sync waits for the system clock to be synchronised.
	Sync(ctx context.Context) error
}
