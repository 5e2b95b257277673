// Package fetch retrieves the dashboard status document and copies it into
// the snapshot.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/state"
)

// Fetcher refreshes a snapshot from the dashboard server.
type Fetcher interface {
	// Fetch overwrites snapshot on success and leaves it untouched on any
	// failure. The caller must have brought the network up.
	Fetch(ctx context.Context, snapshot *state.State) bool
}

// HTTPFetcher performs one blocking GET per call. It never retries; the next
// chance is the next full refresh.
type HTTPFetcher struct {
	client *resty.Client
	url    string
	log    *zap.Logger
}

// NewHTTPFetcher creates a fetcher for the given server address.
func NewHTTPFetcher(url string, timeout time.Duration, log *zap.Logger) *HTTPFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &HTTPFetcher{
		client: client,
		url:    url,
		log:    log,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, snapshot *state.State) bool {
	st, err := f.get(ctx)
	if err != nil {
		f.log.Warn("Failed to query server",
			zap.String("url", f.url),
			zap.String("code", string(errcode.Of(err))),
			zap.Error(err),
		)
		return false
	}

	*snapshot = st
	f.log.Debug("State updated",
		zap.String("date", st.CurrentDate),
		zap.String("recycling", st.Recycling.Type.String()),
	)
	return true
}

func (f *HTTPFetcher) get(ctx context.Context) (state.State, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		return state.State{}, errcode.New(errcode.NetworkUnavailable, "fetch", err)
	}
	if resp.IsError() {
		return state.State{}, &errcode.E{
			C:   errcode.FetchFailed,
			Op:  "fetch",
			Msg: fmt.Sprintf("unexpected status %s", resp.Status()),
		}
	}
	return Decode(resp.Body())
}
