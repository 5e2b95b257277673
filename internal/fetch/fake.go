package fetch

import (
	"context"

	"github.com/sweeney/inkdash/internal/state"
)

// FakeFetcher is a test double that returns a scripted snapshot.
type FakeFetcher struct {
	// Result is copied into the snapshot when OK is true.
	Result state.State
	// OK controls whether Fetch succeeds.
	OK bool
	// Calls counts Fetch invocations.
	Calls int
}

// Fetch implements Fetcher.
func (f *FakeFetcher) Fetch(_ context.Context, snapshot *state.State) bool {
	f.Calls++
	if !f.OK {
		return false
	}
	*snapshot = f.Result
	return true
}
