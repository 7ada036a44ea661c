package collyfetcher

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"
)

const maxTransportBackoff = 5 * time.Second

// retryTransport retries connection-level failures with exponential backoff
// before the page-level retry loop ever sees them.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
	pause      pauseController
}

func newRetryTransport(base http.RoundTripper, maxRetries int, backoff time.Duration, pause pauseController) *retryTransport {
	if pause == nil {
		pause = timerPauseController{}
	}
	return &retryTransport{
		base:       base,
		maxRetries: maxRetries,
		backoff:    backoff,
		pause:      pause,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := t.base.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		if !t.shouldRetry(req, err, attempt) {
			return nil, err
		}
		t.pause.Pause(req.Context(), t.delay(attempt))
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
}

func (t *retryTransport) shouldRetry(req *http.Request, err error, attempt int) bool {
	if attempt >= t.maxRetries {
		return false
	}
	if req.Body != nil && req.GetBody == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// delay returns backoff * 2^attempt, capped.
func (t *retryTransport) delay(attempt int) time.Duration {
	d := float64(t.backoff) * math.Pow(2, float64(attempt))
	if d > float64(maxTransportBackoff) {
		return maxTransportBackoff
	}
	return time.Duration(d)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
}
