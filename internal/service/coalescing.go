package service

import (
	"context"
	"sync"
	"time"
)

// inFlightRequest is one figure computation that several callers may wait on.
type inFlightRequest struct {
	done   chan struct{}
	result []byte
	err    error
}

// requestCoalescer collapses concurrent cache misses for the same key into a
// single computation.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightRequest
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightRequest),
		timeout:  timeout,
	}
}

// GetOrDo joins the computation already running for key, or starts fn.
// The wait is bounded by ctx and the coalescer timeout; fn keeps running for
// the other waiters when one of them gives up. The returned bool is true when
// this caller joined an existing computation.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func() ([]byte, error)) ([]byte, bool, error) {
	rc.mu.Lock()
	req, shared := rc.inFlight[key]
	if !shared {
		req = &inFlightRequest{done: make(chan struct{})}
		rc.inFlight[key] = req
		go rc.run(key, req, fn)
	}
	rc.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-req.done:
		return req.result, shared, req.err
	case <-waitCtx.Done():
		return nil, shared, waitCtx.Err()
	}
}

func (rc *requestCoalescer) run(key string, req *inFlightRequest, fn func() ([]byte, error)) {
	req.result, req.err = fn()
	rc.mu.Lock()
	delete(rc.inFlight, key)
	rc.mu.Unlock()
	close(req.done)
}
